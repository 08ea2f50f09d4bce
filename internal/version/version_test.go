package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	info := Info()

	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.String(), "commercial district change rankings")
	assert.Contains(t, info.String(), "Go Version:")
}

func TestBuildInfoString(t *testing.T) {
	info := BuildInfo{
		Version:   "v1.2.0",
		BuildDate: "2024-01-01T00:00:00Z",
		GitCommit: "abc123def456",
		GoVersion: "go1.24.4",
		Arrow:     "v18.4.0",
	}

	str := info.String()
	assert.Contains(t, str, "Version: v1.2.0\n")
	assert.Contains(t, str, "Build Date: 2024-01-01T00:00:00Z")
	assert.Contains(t, str, "Git Commit: abc123d\n")
	assert.Contains(t, str, "Go Version: go1.24.4")
	assert.Contains(t, str, "Arrow: v18.4.0")
}

func TestBuildInfoStringUnknowns(t *testing.T) {
	info := BuildInfo{
		Version:   "dev",
		BuildDate: unknownValue,
		GitCommit: unknownValue,
		GoVersion: "go1.24.4",
		Dirty:     true,
	}

	str := info.String()
	assert.Contains(t, str, "Version: dev (dirty)")
	assert.NotContains(t, str, "Build Date")
	assert.NotContains(t, str, "Git Commit")
	assert.NotContains(t, str, "Arrow")
}

func TestShort(t *testing.T) {
	assert.Equal(t, "dev", BuildInfo{Version: "dev", GitCommit: unknownValue}.Short())
	assert.Equal(t, "v1.0.0 (abc123d)", BuildInfo{Version: "v1.0.0", GitCommit: "abc123def-dirty"}.Short())
	assert.Equal(t, "v1.0.0 (abc)", BuildInfo{Version: "v1.0.0", GitCommit: "abc"}.Short())
}

func TestIsRelease(t *testing.T) {
	originalVersion := Version
	defer func() { Version = originalVersion }()

	tests := []struct {
		version  string
		expected bool
	}{
		{"v1.0.0", true},
		{"1.0.0", true},
		{"dev", false},
		{"v1.0.0-rc.1", false},
		{"v1.0.0-dirty", false},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			Version = tt.version
			assert.Equal(t, tt.expected, IsRelease())
		})
	}
}
