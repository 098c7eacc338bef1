package web

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"
	"serialserver/cmd/serialserver/config"
	"serialserver/pkg/device"
	"serialserver/pkg/fan"
	"serialserver/pkg/generic"
	"serialserver/pkg/protocol/modbusrtu"
)

// AllowMethods are the verbs the API answers, anything else gets 405.
var AllowMethods = []string{http.MethodPost, http.MethodGet, http.MethodPut}

type Server struct {
	*generic.Server
	*config.Config
}

func NewServer(router *gin.Engine, port string, config *config.Config) (*Server, error) {
	if config == nil || config.SerialMgr == nil {
		return nil, errors.New("server config has no serial manager")
	}
	server := &Server{
		Server: &generic.Server{
			Router:  router,
			Port:    port,
			Methods: AllowMethods,
		},
		Config: config,
	}
	server.InstallHandlers()
	return server, nil
}

func (s *Server) InstallHandlers() {
	v1 := s.Router.Group("/api/v1")
	device.InstallHandler(v1.Group("", device.InjectRegistry(s.Config.Registry)))
	fan.InstallHandler(v1)
	modbusrtu.InstallHandler(v1, s.Config.SerialMgr)
}

// Serve starts listening in the background and returns the func that stops
// the server and closes every serial port.
func (s *Server) Serve() (func(ctx context.Context), error) {
	srv := &http.Server{
		Addr:    s.Address(),
		Handler: s.Router,
	}
	if len(s.Config.CertFile) != 0 && len(s.Config.KeyFile) != 0 {
		keyPair, err := tls.LoadX509KeyPair(s.Config.CertFile, s.Config.KeyFile)
		if err != nil {
			return nil, err
		}
		srv.TLSConfig = &tls.Config{Certificates: []tls.Certificate{keyPair}}
		go func() {
			if err := srv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
				klog.ErrorS(err, "Server stopped", "address", srv.Addr)
			}
		}()
	} else {
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				klog.ErrorS(err, "Server stopped", "address", srv.Addr)
			}
		}()
	}

	return func(ctx context.Context) {
		srv.SetKeepAlivesEnabled(false)
		if err := srv.Shutdown(ctx); err != nil {
			klog.ErrorS(err, "Failed to shut down server")
		}
		if err := s.Config.SerialMgr.Shutdown(ctx); err != nil {
			klog.ErrorS(err, "Failed to close serial ports")
		}
	}, nil
}
