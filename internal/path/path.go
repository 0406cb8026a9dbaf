package path

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Generator computes the output paths for one generation run. The timestamp
// stem is captured at construction so every file from the run shares it.
type Generator struct {
	dir  string
	stem string
}

// New expands a leading ~ in dir, creates the directory (and parents) if
// absent, and locks in a YYYYMMDD-HHMMSS stem. An empty dir means the
// current directory and returns bare filenames.
func New(dir string) (*Generator, error) {
	return newAt(dir, time.Now())
}

func newAt(dir string, now time.Time) (*Generator, error) {
	// Only the caller's own home is expandable; ~otheruser passes through.
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}
	return &Generator{dir: dir, stem: now.Format("20060102-150405")}, nil
}

// ImagePath returns the path for the nth image of the run, counting from 1.
// The first image has no suffix so single generations stay tidy.
func (g *Generator) ImagePath(n int) string {
	return g.path(n, ".png")
}

// ConfigPath returns the sibling config path for the nth image; it differs
// from ImagePath only in extension.
func (g *Generator) ConfigPath(n int) string {
	return g.path(n, ".json")
}

func (g *Generator) path(n int, ext string) string {
	stem := g.stem
	if n > 1 {
		stem = fmt.Sprintf("%s_%d", stem, n)
	}
	return filepath.Join(g.dir, stem+ext)
}
