package fan

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"
	"serialserver/pkg/apis/response"
)

func InstallHandler(group *gin.RouterGroup) {
	group.PUT("/fan/speed", setSpeed())
}

var errMissingSpeed = errors.New("speed is required")

func setSpeed() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Speed *float32 `json:"speed"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			klog.V(2).InfoS("Failed to parse fan speed", "err", err)
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrMalformedJSON))
			return
		}
		if req.Speed == nil {
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrRequestBody(errMissingSpeed)))
			return
		}
		if err := ValidateSpeed(*req.Speed); err != nil {
			klog.V(2).InfoS("Rejected fan speed", "speed", *req.Speed)
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrSpeedOutOfRange))
			return
		}
		klog.V(3).InfoS("Fan speed accepted", "speed", *req.Speed)
		c.Status(http.StatusNoContent)
	}
}
