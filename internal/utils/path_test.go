package utils

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Love in Time", "Love in Time"},
		{`EP01: The <Beginning>`, "EP01_ The _Beginning_"},
		{`a/b\c|d?e*f"g`, "a_b_c_d_e_f_g"},
		{"  padded  ", "padded"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeName(tt.in), "input %q", tt.in)
	}
}

func TestSanitizePath(t *testing.T) {
	base := filepath.Join("/data", "downloads")

	p, err := SanitizePath("drama/ep01.mp4", base)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "drama", "ep01.mp4"), p)

	_, err = SanitizePath("../../etc/passwd", base)
	require.Error(t, err)

	_, err = SanitizePath("/tmp/outside", base)
	require.Error(t, err)

	p, err = SanitizePath(filepath.Join(base, "inside"), base)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "inside"), p)
}
