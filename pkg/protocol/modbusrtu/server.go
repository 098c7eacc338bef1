package modbusrtu

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"
	"serialserver/pkg/apis/response"
	"serialserver/pkg/protocol/modbusrtu/model"
	modbusrturuntime "serialserver/pkg/protocol/modbusrtu/runtime"
)

func InstallHandler(group *gin.RouterGroup, mgr *Manager) {
	group.POST("/frames/encode", encodeFrame())
	group.POST("/frames/decode", decodeFrame())
	group.POST("/exchange", exchange(mgr))
	group.POST("/probe", probe(mgr))
	group.POST("/settings", writeSetting(mgr))
	group.GET("/ports", listPorts(mgr))
}

type operationRequest struct {
	Address  uint8                     `json:"address"`
	Function string                    `json:"function"`
	Register modbusrturuntime.Register `json:"register"`
	Values   []uint16                  `json:"values,omitempty"`
}

func (r *operationRequest) encode() ([]byte, error) {
	if r.Address > modbusrturuntime.MaxDeviceAddress {
		return nil, response.ErrAddressOutOfRange
	}
	function, ok := modbusrturuntime.StringToFunctionCode[r.Function]
	if !ok {
		return nil, response.ErrUnsupportedFunction(fmt.Errorf("%w: %q", modbusrturuntime.ErrUnsupportedFunction, r.Function))
	}
	frame, err := EncodeOperation(r.Address, modbusrturuntime.NewOperation(function, r.Register), r.Values)
	if err != nil {
		return nil, frameError(err)
	}
	return frame, nil
}

type frameView struct {
	Address      uint8    `json:"address"`
	FunctionCode byte     `json:"functionCode"`
	Function     string   `json:"function"`
	Exception    string   `json:"exception,omitempty"`
	Data         string   `json:"data"`
	Checksum     uint16   `json:"checksum"`
	Values       []uint16 `json:"values,omitempty"`
}

func newFrameView(f *modbusrturuntime.Frame) *frameView {
	v := &frameView{
		Address:      f.Address,
		FunctionCode: f.FunctionCode,
		Function:     f.Function().String(),
		Data:         formatHex(f.Data),
		Checksum:     f.Checksum,
	}
	if f.IsException() && len(f.Data) > 0 {
		v.Exception = modbusrturuntime.ExceptionCode(f.Data[0]).String()
	} else if f.Function().IsRead() {
		v.Values = RegisterValues(f)
	}
	return v
}

func formatHex(b []byte) string {
	return fmt.Sprintf("% X", b)
}

func parseHex(s string) ([]byte, error) {
	s = strings.NewReplacer(" ", "", ":", "", "-", "").Replace(strings.TrimSpace(s))
	return hex.DecodeString(s)
}

func encodeFrame() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req operationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			klog.V(2).InfoS("Failed to parse frame", "err", err)
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrMalformedJSON))
			return
		}
		frame, err := req.encode()
		if err != nil {
			c.JSON(http.StatusBadRequest, response.NewMultiError(err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"frame": formatHex(frame)})
	}
}

func decodeFrame() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Frame string `json:"frame"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			klog.V(2).InfoS("Failed to parse frame", "err", err)
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrMalformedJSON))
			return
		}
		raw, err := parseHex(req.Frame)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrMalformedFrame(err)))
			return
		}
		f, err := Decode(raw)
		if err != nil {
			c.JSON(frameStatus(err), response.NewMultiError(frameError(err)))
			return
		}
		c.JSON(http.StatusOK, newFrameView(f))
	}
}

func exchange(mgr *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Port string `json:"port"`
			operationRequest
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			klog.V(2).InfoS("Failed to parse exchange", "err", err)
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrMalformedJSON))
			return
		}
		request, err := req.encode()
		if err != nil {
			c.JSON(http.StatusBadRequest, response.NewMultiError(err))
			return
		}
		transport, err := mgr.Transport(req.Port)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrInvalidValue(err)))
			return
		}

		raw, err := transport.Exchange(c.Request.Context(), request)
		if err != nil {
			klog.V(2).InfoS("Failed to exchange", "port", req.Port, "address", req.Address, "err", err)
			c.JSON(exchangeStatus(err), response.NewMultiError(exchangeError(err)))
			return
		}
		out := gin.H{"request": formatHex(request)}
		if req.Address == modbusrturuntime.BroadcastAddress {
			c.JSON(http.StatusOK, out)
			return
		}
		f, err := DecodeResponse(request, raw)
		if err != nil {
			klog.V(2).InfoS("Device answered badly", "port", req.Port, "address", req.Address, "response", raw, "err", err)
			c.JSON(exchangeStatus(err), response.NewMultiError(exchangeError(err)))
			return
		}
		out["response"] = newFrameView(f)
		c.JSON(http.StatusOK, out)
	}
}

type probeRequest struct {
	Port    string `json:"port"`
	Address uint8  `json:"address"`
	Type    string `json:"type"`
}

type registerReading struct {
	Name  string   `json:"name"`
	Value *float64 `json:"value,omitempty"`
	Unit  string   `json:"unit,omitempty"`
	Error string   `json:"error,omitempty"`
}

// probe reads every register the device type defines. A register that fails
// does not stop the others, devices often lack optional registers.
func probe(mgr *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req probeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			klog.V(2).InfoS("Failed to parse probe", "err", err)
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrMalformedJSON))
			return
		}
		if req.Address < modbusrturuntime.MinDeviceAddress || req.Address > modbusrturuntime.MaxDeviceAddress {
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrAddressOutOfRange))
			return
		}
		defs, err := model.Registers(req.Type)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrUnknownDeviceType(req.Type)))
			return
		}
		client, err := mgr.Client(req.Port, req.Address)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrInvalidValue(err)))
			return
		}

		readings := make([]registerReading, 0, len(defs))
		for _, d := range defs {
			readings = append(readings, read(c.Request.Context(), client, d))
			if err := c.Request.Context().Err(); err != nil {
				c.JSON(exchangeStatus(err), response.NewMultiError(exchangeError(err)))
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"address": req.Address, "type": req.Type, "registers": readings})
	}
}

func read(ctx context.Context, client *Client, d model.Definition) registerReading {
	reading := registerReading{Name: d.Name, Unit: d.Unit}
	values, err := client.ReadRegisters(ctx, d.Function, d.Register)
	if err == nil {
		var v float64
		if v, err = d.Decode(values); err == nil {
			reading.Value = &v
			return reading
		}
	}
	klog.V(3).InfoS("Failed to read register", "address", client.Address, "register", d.Name, "err", err)
	reading.Error = err.Error()
	return reading
}

func writeSetting(mgr *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			probeRequest
			Name  string  `json:"name"`
			Value float64 `json:"value"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			klog.V(2).InfoS("Failed to parse setting", "err", err)
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrMalformedJSON))
			return
		}
		if req.Address > modbusrturuntime.MaxDeviceAddress {
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrAddressOutOfRange))
			return
		}
		d, err := model.Lookup(req.Type, req.Name)
		if err != nil {
			c.JSON(http.StatusNotFound, response.NewMultiError(response.ErrResourceNotFound(fmt.Sprintf("%s.%s", req.Type, req.Name))))
			return
		}
		raw, err := d.Encode(req.Value)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrInvalidValue(err)))
			return
		}
		client, err := mgr.Client(req.Port, req.Address)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrInvalidValue(err)))
			return
		}
		if err := client.WriteSingleRegister(c.Request.Context(), d.Register.Address, raw); err != nil {
			klog.V(2).InfoS("Failed to write register", "port", req.Port, "address", req.Address, "register", d.Name, "err", err)
			c.JSON(exchangeStatus(err), response.NewMultiError(exchangeError(err)))
			return
		}
		klog.V(3).InfoS("Register written", "port", req.Port, "address", req.Address, "register", d.Name, "value", req.Value)
		c.Status(http.StatusNoContent)
	}
}

// listPorts reports the ports mgr has clients for, it does not scan the host.
func listPorts(mgr *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ports": mgr.Ports()})
	}
}

func frameStatus(err error) int {
	if errors.Is(err, modbusrturuntime.ErrCRC16Error) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadRequest
}

func frameError(err error) error {
	switch {
	case errors.Is(err, modbusrturuntime.ErrCRC16Error):
		return response.ErrChecksum(err)
	case errors.Is(err, modbusrturuntime.ErrUnsupportedFunction):
		return response.ErrUnsupportedFunction(err)
	default:
		return response.ErrMalformedFrame(err)
	}
}

func exchangeStatus(err error) int {
	var exception *modbusrturuntime.ExceptionError
	switch {
	case errors.As(err, &exception):
		return http.StatusUnprocessableEntity
	case errors.Is(err, modbusrturuntime.ErrResponseTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, modbusrturuntime.ErrSerialPortClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func exchangeError(err error) error {
	var exception *modbusrturuntime.ExceptionError
	if errors.As(err, &exception) {
		return response.ErrDeviceException(err)
	}
	return response.ErrExchange(err)
}
