package options

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

func TestValidateOptions(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(o *Options)
		field  string
		typ    field.ErrorType
	}{
		{"port not a number", func(o *Options) { o.Port = "http" }, "port", field.ErrorTypeInvalid},
		{"port out of range", func(o *Options) { o.Port = "70000" }, "port", field.ErrorTypeInvalid},
		{"negative wait", func(o *Options) { o.Wait.Duration = -time.Second }, "graceful-timeout", field.ErrorTypeInvalid},
		{"cert without key", func(o *Options) { o.CertFile = "server.crt" }, "tls-private-key-file", field.ErrorTypeRequired},
		{"baud rate", func(o *Options) { o.Serial.BaudRate = 115200 }, "serial.baud-rate", field.ErrorTypeNotSupported},
		{"data bits", func(o *Options) { o.Serial.DataBits = 9 }, "serial.data-bits", field.ErrorTypeInvalid},
		{"stop bits", func(o *Options) { o.Serial.StopBits = "3" }, "serial.stop-bits", field.ErrorTypeNotSupported},
		{"parity", func(o *Options) { o.Serial.Parity = "none" }, "serial.parity", field.ErrorTypeNotSupported},
		{"timeout", func(o *Options) { o.Serial.Timeout.Duration = 0 }, "serial.timeout", field.ErrorTypeInvalid},
		{"retries", func(o *Options) { o.Serial.Retries = 0 }, "serial.retries", field.ErrorTypeInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := NewDefaultOptions()
			tc.mutate(o)
			errs := validateOptions(o)
			if assert.Len(t, errs, 1) {
				assert.Equal(t, tc.field, errs[0].Field)
				assert.Equal(t, tc.typ, errs[0].Type)
			}
		})
	}
}

func TestValidateAcceptsTLSPair(t *testing.T) {
	o := NewDefaultOptions()
	o.CertFile = "server.crt"
	o.KeyFile = "server.key"
	assert.Empty(t, validateOptions(o))
}
