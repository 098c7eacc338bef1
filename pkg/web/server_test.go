package web

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"serialserver/cmd/serialserver/config"
	"serialserver/pkg/device"
	"serialserver/pkg/generic"
	"serialserver/pkg/protocol/modbusrtu"
)

func newTestServer(t *testing.T) *Server {
	gin.SetMode(gin.TestMode)
	s, err := NewServer(generic.Default(AllowMethods...), "0", &config.Config{
		Registry:  device.NewRegistry(),
		SerialMgr: modbusrtu.NewManager(),
	})
	require.NoError(t, err)
	return s
}

func send(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func TestNewServerRequiresSerialManager(t *testing.T) {
	_, err := NewServer(gin.New(), "0", &config.Config{Registry: device.NewRegistry()})
	assert.Error(t, err)
	_, err = NewServer(gin.New(), "0", nil)
	assert.Error(t, err)
}

func TestServerRoutes(t *testing.T) {
	s := newTestServer(t)

	w := send(s, http.MethodPost, "/api/v1/devices", `{"address":12,"type":"Fan"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"devices":[{"address":12,"type":"Fan"}]}`, w.Body.String())

	w = send(s, http.MethodPost, "/api/v1/devices", `{"address":12,"type":"TemperatureSensor"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = send(s, http.MethodPut, "/api/v1/fan/speed", `{"speed":0.5}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = send(s, http.MethodPost, "/api/v1/frames/encode", `{"address":1,"function":"ReadInputRegister","register":{"address":1,"length":2}}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"frame":"01 04 00 01 00 01 60 0A"}`, w.Body.String())

	w = send(s, http.MethodDelete, "/api/v1/devices", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServerWithoutRegistryReportsNoState(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s, err := NewServer(gin.New(), "0", &config.Config{SerialMgr: modbusrtu.NewManager()})
	require.NoError(t, err)

	w := send(s, http.MethodPost, "/api/v1/devices", `{"address":12,"type":"Fan"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestServeRejectsMissingCertificate(t *testing.T) {
	s := newTestServer(t)
	s.Config.CertFile = "does-not-exist.crt"
	s.Config.KeyFile = "does-not-exist.key"
	exit, err := s.Serve()
	assert.Error(t, err)
	assert.Nil(t, exit)
}
