package configtypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListenAddress(t *testing.T) {
	tests := []struct {
		name        string
		listen      string
		wantHost    string
		wantPort    int
		errContains string
	}{
		{name: "port only with colon", listen: ":8080", wantPort: 8080},
		{name: "port only without colon", listen: "8080", wantPort: 8080},
		{name: "localhost with port", listen: "localhost:9090", wantHost: "localhost", wantPort: 9090},
		{name: "all interfaces", listen: "0.0.0.0:10070", wantHost: "0.0.0.0", wantPort: 10070},
		{name: "empty string", listen: "", errContains: "listen address is empty"},
		{name: "no port", listen: "localhost", errContains: "invalid listen address format"},
		{name: "non-numeric port", listen: "localhost:abc", errContains: "invalid port"},
		{name: "too many colons", listen: "host:8080:extra", errContains: "invalid listen address format"},
		{name: "only colon", listen: ":", errContains: "invalid port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, port, err := ParseListenAddress(tt.listen)

			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPort, port)
		})
	}
}

func TestValidateListenAddress(t *testing.T) {
	tests := []struct {
		listen      string
		errContains string
	}{
		{listen: ":8080"},
		{listen: ":1"},
		{listen: ":65535"},
		{listen: "", errContains: "listen address is empty"},
		{listen: ":0", errContains: "got 0"},
		{listen: ":65536", errContains: "got 65536"},
		{listen: "invalid", errContains: "invalid listen address format"},
	}

	for _, tt := range tests {
		t.Run(tt.listen, func(t *testing.T) {
			err := ValidateListenAddress(tt.listen)
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestNormalizeListen(t *testing.T) {
	got, err := NormalizeListen("8080")
	require.NoError(t, err)
	assert.Equal(t, ":8080", got)

	got, err = NormalizeListen("localhost:9090")
	require.NoError(t, err)
	assert.Equal(t, "localhost:9090", got)

	_, err = NormalizeListen("invalid")
	assert.Error(t, err)
}

func TestSamePort(t *testing.T) {
	assert.True(t, SamePort(":8080", "0.0.0.0:8080"))
	assert.False(t, SamePort(":8080", ":9090"))
	assert.False(t, SamePort("", ""))
}

func TestFetchConfig_IsSSRFProtectionEnabled(t *testing.T) {
	off := false
	assert.True(t, (&FetchConfig{}).IsSSRFProtectionEnabled())
	assert.False(t, (&FetchConfig{SSRFProtection: &off}).IsSSRFProtectionEnabled())
}
