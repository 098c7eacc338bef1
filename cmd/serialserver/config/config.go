package config

import (
	"serialserver/pkg/device"
	"serialserver/pkg/protocol/modbusrtu"
)

type Config struct {
	Registry  *device.Registry
	SerialMgr *modbusrtu.Manager
	CertFile  string
	KeyFile   string
}
