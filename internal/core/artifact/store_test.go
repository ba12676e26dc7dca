package artifact

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSafeBaseName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"acme", "acme"},
		{"Acme Corp", "Acme_Corp"},
		{"a/b\\c:d", "a_b_c_d"},
		{"what?*<>|", "what_____"},
		{"  trimmed  ", "trimmed"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FileSafeBaseName(tt.in))
	}
}

func TestFileSafeBaseNameKeepsRunesIntact(t *testing.T) {
	// 30 three-byte runes; the 64-byte cap lands mid-rune
	out := FileSafeBaseName(strings.Repeat("€", 30))
	assert.True(t, utf8.ValidString(out))
	assert.LessOrEqual(t, len(out), 64)
	assert.Equal(t, strings.Repeat("€", 21), out)
}

func TestSaveScreenshotAndLogoPaths(t *testing.T) {
	dir := t.TempDir()
	s, err := New(Options{OutputDir: dir, SubFolder: "images"})
	require.NoError(t, err)

	shot, err := s.SaveScreenshot("Acme Corp", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "images/Acme_Corp.png", shot)

	logo, err := s.SaveLogo("Acme Corp", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "images/Acme_Corp-1.png", logo)

	b, err := os.ReadFile(filepath.Join(dir, "images", "Acme_Corp.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), b)
}
