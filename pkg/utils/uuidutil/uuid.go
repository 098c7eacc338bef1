package uuidutil

import (
	"encoding/base64"
	"strings"

	"github.com/google/uuid"
)

var escaper = strings.NewReplacer("9", "99", "-", "90", "_", "91")

// RequestID returns a short, url safe random id used to correlate log lines
// of one HTTP request.
// refer to https://stackoverflow.com/questions/37934162/output-uuid-in-go-as-a-short-string
func RequestID() string {
	id := uuid.New()
	return escaper.Replace(base64.RawURLEncoding.EncodeToString(id[:]))
}
