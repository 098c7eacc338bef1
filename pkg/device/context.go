package device

import (
	"github.com/gin-gonic/gin"
)

// InjectRegistry makes registry available to the handlers below it.
func InjectRegistry(registry *Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		if registry != nil {
			c.Set(registryKey, registry)
		}
		c.Next()
	}
}

func registryFrom(c *gin.Context) (*Registry, error) {
	v, ok := c.Get(registryKey)
	if !ok {
		return nil, ErrNoState
	}
	registry, ok := v.(*Registry)
	if !ok || registry == nil {
		return nil, ErrNoState
	}
	return registry, nil
}
