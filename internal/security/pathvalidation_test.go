package security

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, ValidatePathWithinDirectory(filepath.Join(dir, "report.html"), dir))
	require.NoError(t, ValidatePathWithinDirectory(filepath.Join(dir, "sub", "report.html"), dir))

	assert.Error(t, ValidatePathWithinDirectory(filepath.Join(dir, "..", "escape.html"), dir))
	assert.Error(t, ValidatePathWithinDirectory("/etc/passwd", dir))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "unknown"},
		{"report.html", "report.html"},
		{"a b/c\\d", "a_b_c_d"},
		{"../../etc/passwd", "etc_passwd"},
		{"___", "unknown"},
		{"Push-Up Session #3", "Push-Up_Session_3"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFilename(tt.in), tt.in)
	}
}
