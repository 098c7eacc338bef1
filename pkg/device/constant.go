package device

import (
	"errors"

	"github.com/gin-gonic/gin/binding"
	"k8s.io/apimachinery/pkg/util/sets"
)

var (
	ErrAddressOutOfRange = errors.New("device address out of range")
	ErrAddressTaken      = errors.New("device address already taken")
	ErrNoState           = errors.New("device registry not available")
	ErrUnknownDeviceType = errors.New("unknown device type")
)

var formTypes = sets.New[string](binding.MIMEPOSTForm, binding.MIMEMultipartPOSTForm)

const registryKey = "serialserver/device.registry"
