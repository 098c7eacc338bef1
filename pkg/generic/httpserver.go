package generic

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/klog/v2"
	"serialserver/pkg/apis/response"
	"serialserver/pkg/utils/uuidutil"
)

const HeaderRequestID = "X-Request-Id"

func Default(methods ...string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.NoMethod(methodNotAllowed)
	engine.Use(logger(), gin.Recovery())
	if len(methods) > 0 {
		engine.Use(allowMethods(methods))
	}
	return engine
}

func logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Start timer
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		requestID := c.GetHeader(HeaderRequestID)
		if len(requestID) == 0 {
			requestID = uuidutil.RequestID()
		}
		c.Header(HeaderRequestID, requestID)

		// Process request
		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}
		klog.V(4).InfoS("Received HTTP request",
			"requestId", requestID,
			"verb", c.Request.Method,
			"URI", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

func allowMethods(methods []string) gin.HandlerFunc {
	allowed := sets.New[string](methods...)
	return func(c *gin.Context) {
		if !allowed.Has(c.Request.Method) {
			methodNotAllowed(c)
			return
		}
		c.Next()
	}
}

func methodNotAllowed(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusMethodNotAllowed, response.NewMultiError(response.ErrMethodNotAllowed(c.Request.Method)))
}
