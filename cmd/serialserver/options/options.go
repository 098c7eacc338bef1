package options

import (
	"time"

	"github.com/spf13/pflag"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"serialserver/cmd/serialserver/config"
	"serialserver/pkg/device"
	baseoptions "serialserver/pkg/generic/options"
	"serialserver/pkg/protocol/modbusrtu"
	modbusrturuntime "serialserver/pkg/protocol/modbusrtu/runtime"
	"serialserver/pkg/runtime/constant"
)

type Options struct {
	Port     string          `json:"port"`
	Wait     metav1.Duration `json:"graceful-timeout"`
	CertFile string          `json:"tls-cert-file,omitempty"`
	KeyFile  string          `json:"tls-private-key-file,omitempty"`
	Serial   SerialOptions   `json:"serial"`
	baseoptions.BaseOptions
}

// SerialOptions configure every port the server opens.
type SerialOptions struct {
	BaudRate int             `json:"baud-rate"`
	DataBits int             `json:"data-bits"`
	StopBits string          `json:"stop-bits"`
	Parity   string          `json:"parity"`
	Timeout  metav1.Duration `json:"timeout"`
	Retries  int             `json:"retries"`
}

const (
	_defaultPort = "32200"
	_defaultWait = 15 * time.Second
)

func NewDefaultOptions() *Options {
	profile := modbusrturuntime.DefaultSerialProfile()
	return &Options{
		Port: _defaultPort,
		Wait: metav1.Duration{Duration: _defaultWait},
		Serial: SerialOptions{
			BaudRate: profile.BaudRate,
			DataBits: profile.DataBits,
			StopBits: profile.StopBits.String(),
			Parity:   profile.Parity.String(),
			Timeout:  metav1.Duration{Duration: modbusrtu.DefaultTimeout},
			Retries:  modbusrtu.DefaultRetries,
		},
		BaseOptions: baseoptions.NewDefaultBaseOptions(),
	}
}

func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.Port, "port", "P", o.Port, "Port the HTTP API listens on")
	fs.DurationVar(&o.Wait.Duration, "graceful-timeout", o.Wait.Duration, "How long shutdown waits for open requests and serial exchanges, e.g. 15s or 1m")
	fs.StringVar(&o.CertFile, "tls-cert-file", o.CertFile, "Serve HTTPS with this certificate, requires --tls-private-key-file")
	fs.StringVar(&o.KeyFile, "tls-private-key-file", o.KeyFile, "Private key matching --tls-cert-file")

	fs.IntVar(&o.Serial.BaudRate, "serial-baud-rate", o.Serial.BaudRate, "Baud rate of the serial line")
	fs.IntVar(&o.Serial.DataBits, "serial-data-bits", o.Serial.DataBits, "Data bits per character, 5 to 8")
	fs.StringVar(&o.Serial.StopBits, "serial-stop-bits", o.Serial.StopBits, `Stop bits, one of "1", "1.5" or "2"`)
	fs.StringVar(&o.Serial.Parity, "serial-parity", o.Serial.Parity, "Parity, one of noParity, oddParity, evenParity, markParity or spaceParity")
	fs.DurationVar(&o.Serial.Timeout.Duration, "serial-timeout", o.Serial.Timeout.Duration, "How long to wait for a device to answer")
	fs.IntVar(&o.Serial.Retries, "serial-retries", o.Serial.Retries, "Attempts per exchange when the port fails")
}

// Profile converts the serial options, they must have been validated.
func (s *SerialOptions) Profile() (modbusrturuntime.SerialProfile, error) {
	stopBits, err := constant.ParseStopBits(s.StopBits)
	if err != nil {
		return modbusrturuntime.SerialProfile{}, err
	}
	parity, err := constant.ParseParity(s.Parity)
	if err != nil {
		return modbusrturuntime.SerialProfile{}, err
	}
	return modbusrturuntime.SerialProfile{
		BaudRate: s.BaudRate,
		DataBits: s.DataBits,
		StopBits: stopBits,
		Parity:   parity,
	}, nil
}

func (o *Options) Config() (*config.Config, error) {
	profile, err := o.Serial.Profile()
	if err != nil {
		return nil, err
	}
	return &config.Config{
		Registry: device.NewRegistry(),
		SerialMgr: modbusrtu.NewManager(
			modbusrtu.WithProfile(profile),
			modbusrtu.WithTimeout(o.Serial.Timeout.Duration),
			modbusrtu.WithRetries(o.Serial.Retries),
		),
		CertFile: o.CertFile,
		KeyFile:  o.KeyFile,
	}, nil
}
