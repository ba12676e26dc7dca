// Package artifact persists captured images. Local disk is authoritative;
// when Supabase storage is configured, saves are mirrored there best effort.
package artifact

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"harvester/internal/logger"

	"github.com/antoineross/supabase-go"
	storage_go "github.com/supabase-community/storage-go"
)

type Store struct {
	log       *logger.Logger
	outputDir string
	subFolder string

	supabase *supabase.Client
	bucket   string
}

type Options struct {
	OutputDir string
	SubFolder string

	SupabaseURL        string
	SupabaseServiceKey string
	SupabaseBucket     string
}

// New prepares the image directory. An unwritable output directory is fatal
// to the run.
func New(opts Options) (*Store, error) {
	s := &Store{
		log:       logger.New("ArtifactStore"),
		outputDir: opts.OutputDir,
		subFolder: opts.SubFolder,
		bucket:    opts.SupabaseBucket,
	}
	dir := filepath.Join(opts.OutputDir, opts.SubFolder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("output directory unwritable: %w", err)
	}

	if opts.SupabaseURL != "" && opts.SupabaseServiceKey != "" {
		client, err := supabase.NewClient(opts.SupabaseURL, opts.SupabaseServiceKey, nil)
		if err != nil {
			s.log.LogWarnf("failed to initialize Supabase client: %v", err)
		} else {
			s.supabase = client
		}
	}
	return s, nil
}

// SaveScreenshot writes the full-page capture and returns the relative path
// recorded in the output table: {subFolder}/{safeBase}.png
func (s *Store) SaveScreenshot(baseName string, data []byte) (string, error) {
	return s.save(FileSafeBaseName(baseName)+".png", data)
}

// SaveLogo writes the logo crop as {subFolder}/{safeBase}-1.png. The index is
// fixed at 1; multiple-variant capture is not implemented.
func (s *Store) SaveLogo(baseName string, data []byte) (string, error) {
	return s.save(FileSafeBaseName(baseName)+"-1.png", data)
}

func (s *Store) save(name string, data []byte) (string, error) {
	rel := filepath.ToSlash(filepath.Join(s.subFolder, name))
	abs := filepath.Join(s.outputDir, s.subFolder, name)
	if err := os.WriteFile(abs, data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	s.upload(rel, data)
	return rel, nil
}

func (s *Store) upload(rel string, data []byte) {
	if s.supabase == nil || s.bucket == "" {
		return
	}
	mimeType := "image/png"
	if _, err := s.supabase.Storage.UploadFile(s.bucket, rel, bytes.NewReader(data), storage_go.FileOptions{ContentType: &mimeType}); err != nil {
		s.log.LogWarnf("supabase upload failed for %s: %v", rel, err)
	}
}

// FileSafeBaseName replaces filesystem-hostile characters with underscores.
// Collisions between distinct base names are the caller's problem and will
// overwrite files.
func FileSafeBaseName(name string) string {
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_", " ", "_",
	)
	out := replacer.Replace(strings.TrimSpace(name))
	if len(out) > 64 {
		// never cut mid-rune
		cut := 64
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = out[:cut]
	}
	return out
}
