package device

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mitchellh/mapstructure"
	"k8s.io/klog/v2"
	"serialserver/pkg/apis/response"
	modbusrturuntime "serialserver/pkg/protocol/modbusrtu/runtime"
)

// InstallHandler expects the registry to be injected with InjectRegistry.
func InstallHandler(group *gin.RouterGroup) {
	group.POST("/devices", createDevice())
	group.GET("/devices", listDevices())
}

// createRequest takes the address wide so that 0 or 300 report a range
// error and not a decoding one.
type createRequest struct {
	Address int    `json:"address" mapstructure:"address"`
	Type    string `json:"type" mapstructure:"type"`
}

func (r *createRequest) device() (Device, error) {
	if r.Address < int(modbusrturuntime.MinDeviceAddress) || r.Address > int(modbusrturuntime.MaxDeviceAddress) {
		return Device{}, fmt.Errorf("%w: %d", ErrAddressOutOfRange, r.Address)
	}
	t, err := ParseDeviceType(r.Type)
	if err != nil {
		return Device{}, err
	}
	return Device{Address: uint8(r.Address), Type: t}, nil
}

var errEmptyForm = errors.New("form has no device fields")

func bindCreateRequest(c *gin.Context) (*createRequest, error) {
	req := &createRequest{}
	if formTypes.Has(c.ContentType()) {
		// device[address]=12&device[type]=Fan
		form := c.PostFormMap("device")
		if len(form) == 0 {
			return nil, errEmptyForm
		}
		if err := mapstructure.WeakDecode(form, req); err != nil {
			return nil, err
		}
		return req, nil
	}
	if err := c.ShouldBindJSON(req); err != nil {
		return nil, err
	}
	return req, nil
}

func createDevice() gin.HandlerFunc {
	return func(c *gin.Context) {
		registry, err := registryFrom(c)
		if err != nil {
			klog.ErrorS(err, "Device registry missing from request context")
			c.JSON(http.StatusInternalServerError, response.NewMultiError(response.ErrNoState))
			return
		}

		req, err := bindCreateRequest(c)
		if err != nil {
			klog.V(2).InfoS("Failed to parse device", "err", err)
			if errors.Is(err, errEmptyForm) {
				c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrRequestBody(err)))
				return
			}
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrMalformedJSON))
			return
		}
		d, err := req.device()
		if err == nil {
			var devices []Device
			if devices, err = registry.Create(d); err == nil {
				klog.V(3).InfoS("Device registered", "address", d.Address, "type", d.Type, "count", len(devices))
				c.JSON(http.StatusCreated, gin.H{"devices": devices})
				return
			}
		}

		klog.V(2).InfoS("Failed to register device", "address", req.Address, "type", req.Type, "err", err)
		c.JSON(errorStatus(err), response.NewMultiError(responseError(err, req.Type)))
	}
}

func listDevices() gin.HandlerFunc {
	return func(c *gin.Context) {
		registry, err := registryFrom(c)
		if err != nil {
			klog.ErrorS(err, "Device registry missing from request context")
			c.JSON(http.StatusInternalServerError, response.NewMultiError(response.ErrNoState))
			return
		}
		devices, err := registry.List()
		if err != nil {
			c.JSON(errorStatus(err), response.NewMultiError(responseError(err, "")))
			return
		}
		c.JSON(http.StatusOK, gin.H{"devices": devices})
	}
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, ErrAddressTaken):
		return http.StatusConflict
	case errors.Is(err, ErrNoState):
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func responseError(err error, deviceType string) error {
	switch {
	case errors.Is(err, ErrUnknownDeviceType):
		return response.ErrUnknownDeviceType(deviceType)
	case errors.Is(err, ErrAddressOutOfRange):
		return response.ErrAddressOutOfRange
	case errors.Is(err, ErrAddressTaken):
		return response.ErrAddressTaken
	case errors.Is(err, ErrNoState):
		return response.ErrNoState
	default:
		return response.ErrInvalidValue(err)
	}
}
