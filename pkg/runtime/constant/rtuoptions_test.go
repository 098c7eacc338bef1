package constant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStopBits(t *testing.T) {
	for s, expected := range StringToStopBits {
		actual, err := ParseStopBits(s)
		require.NoError(t, err)
		assert.Equal(t, expected, actual)
		assert.Equal(t, s, actual.String())
	}

	_, err := ParseStopBits("3")
	assert.Error(t, err)
	assert.Equal(t, "StopBits(9)", StopBits(9).String())
}

func TestParseParity(t *testing.T) {
	for s, expected := range StringToParity {
		actual, err := ParseParity(s)
		require.NoError(t, err)
		assert.Equal(t, expected, actual)
		assert.Equal(t, s, actual.String())
	}

	_, err := ParseParity("none")
	assert.Error(t, err)
}
