package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestInfoString(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{name: "clean state", info: Info{GitVersion: "v1.0.0", GitTreeState: "clean"}, want: "v1.0.0"},
		{name: "dirty state", info: Info{GitVersion: "v1.0.0", GitTreeState: "dirty"}, want: "v1.0.0-dirty"},
		{name: "empty state", info: Info{GitVersion: "v1.0.0"}, want: "v1.0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.info.String())
		})
	}
}

func TestGet(t *testing.T) {
	info := Get()
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
	assert.NotEmpty(t, info.GitVersion)
}

func TestToJSONIndent(t *testing.T) {
	out, err := Info{GitVersion: "v1.2.3", BuildDate: "2024-01-01T00:00:00Z"}.ToJSONIndent()
	require.NoError(t, err)
	assert.Equal(t, "v1.2.3", gjson.Get(out, "gitVersion").String())
	assert.False(t, gjson.Get(out, "gitCommit").Exists())
	assert.Contains(t, out, "\n  ")
}

func TestText(t *testing.T) {
	text := Info{GitVersion: "v1.2.3", GitCommit: "abc", Platform: "linux/amd64"}.Text()
	assert.Contains(t, text, "gitVersion: v1.2.3")
	assert.Contains(t, text, "gitCommit: abc")
	assert.NotContains(t, text, "gitTreeState")
}
