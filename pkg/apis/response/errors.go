package response

// messages is indexed by code, codes with a %s take the cause or resource.
var messages = map[ErrCode]string{
	ErrCodeMalformedJSON:       "The JSON you provided was not well-formed or did not validate against our published format.",
	ErrCodeRequestBody:         "Request body error: %s",
	ErrCodeUnknownDeviceType:   "Unknown device type %q.",
	ErrCodeResourceNotFound:    "Resource %s not found.",
	ErrCodeMethodNotAllowed:    "Method %s not allowed.",
	ErrCodeAddressOutOfRange:   "Device address must be within 1..247.",
	ErrCodeAddressTaken:        "Device address is already taken.",
	ErrCodeNoState:             "Device registry is not available.",
	ErrCodeSpeedOutOfRange:     "Fan speed must be within 0..1.",
	ErrCodeMalformedFrame:      "Malformed frame: %s",
	ErrCodeChecksum:            "Frame checksum mismatch: %s",
	ErrCodeUnsupportedFunction: "Unsupported function: %s",
	ErrCodeExchange:            "Exchange with device failed: %s",
	ErrCodeDeviceException:     "Device answered with an exception: %s",
	ErrCodeInvalidValue:        "Invalid value: %s",
}

var ErrMalformedJSON = newError(ErrCodeMalformedJSON)

var ErrAddressOutOfRange = newError(ErrCodeAddressOutOfRange)

var ErrAddressTaken = newError(ErrCodeAddressTaken)

var ErrNoState = newError(ErrCodeNoState)

var ErrSpeedOutOfRange = newError(ErrCodeSpeedOutOfRange)
