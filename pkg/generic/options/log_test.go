package options

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"
)

func TestLoggingConfigurationYAML(t *testing.T) {
	l := NewDefaultLoggingConfiguration()
	data, err := yaml.Marshal(&l)
	require.NoError(t, err)
	assert.YAMLEq(t, "format: text\nverbosity: 2\n", string(data))

	require.NoError(t, yaml.Unmarshal([]byte("verbosity: 5\n"), &l))
	assert.Equal(t, "text", l.Format)
	assert.EqualValues(t, 5, l.Verbosity)
}

func TestBindLoggingFlags(t *testing.T) {
	l := NewDefaultLoggingConfiguration()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	l.BindLoggingFlags(fs)

	for _, name := range []string{"v", "vmodule", "logging-format"} {
		f := fs.Lookup(name)
		require.NotNil(t, f, name)
		assert.False(t, f.Hidden, name)
	}
	fs.VisitAll(func(f *pflag.Flag) {
		if !visibleLoggingFlags[f.Name] {
			assert.True(t, f.Hidden, f.Name)
		}
	})

	require.NoError(t, fs.Parse([]string{"-v", "4", "--logging-format", "json"}))
	assert.EqualValues(t, 4, l.Verbosity)
	assert.Equal(t, "json", l.Format)
}
