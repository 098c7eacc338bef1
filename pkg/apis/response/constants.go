package response

type ErrCode int

const (
	_                           ErrCode = 10000 + iota
	ErrCodeMalformedJSON                // 10001
	ErrCodeRequestBody                  // 10002
	ErrCodeUnknownDeviceType            // 10003
	ErrCodeResourceNotFound             // 10004
	ErrCodeMethodNotAllowed             // 10005
	ErrCodeAddressOutOfRange            // 10006
	ErrCodeAddressTaken                 // 10007
	ErrCodeNoState                      // 10008
	ErrCodeSpeedOutOfRange              // 10009
	ErrCodeMalformedFrame               // 10010
	ErrCodeChecksum                     // 10011
	ErrCodeUnsupportedFunction          // 10012
	ErrCodeExchange                     // 10013
	ErrCodeDeviceException              // 10014
	ErrCodeInvalidValue                 // 10015
)

// !!! IMPORTANT PLEASE READ FIRST !!!
// You SHOULD add new code at the end, and append comment of number
// Meanwhile, the corresponding error message SHOULD be appended in response.errors
// The order MUST be consistent between them
