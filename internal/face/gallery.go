package face

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"bioentry/pkg/platform/sentinel"
)

// Gallery stores one reference image per subject on the filesystem, written
// atomically via a temp file rename.
type Gallery struct {
	dir string
}

// NewGallery creates a gallery rooted at dir, creating it when missing.
func NewGallery(dir string) (*Gallery, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create gallery dir: %w", err)
	}
	return &Gallery{dir: dir}, nil
}

func (g *Gallery) path(subjectID string) string {
	return filepath.Join(g.dir, subjectID+".jpg")
}

// Save writes the reference image for a subject, replacing any previous one.
func (g *Gallery) Save(subjectID string, data []byte) error {
	if strings.ContainsAny(subjectID, `/\`) || subjectID == "" || subjectID == "." || subjectID == ".." {
		return fmt.Errorf("invalid subject id %q", subjectID)
	}

	tmp, err := os.CreateTemp(g.dir, "ref-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp reference: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write reference: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close reference: %w", err)
	}
	if err := os.Rename(tmpName, g.path(subjectID)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("store reference: %w", err)
	}
	return nil
}

// Load returns the reference image for a subject, or sentinel.ErrNotFound.
func (g *Gallery) Load(subjectID string) ([]byte, error) {
	data, err := os.ReadFile(g.path(subjectID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load reference: %w", err)
	}
	return data, nil
}

// Has reports whether a reference image exists for the subject.
func (g *Gallery) Has(subjectID string) bool {
	_, err := os.Stat(g.path(subjectID))
	return err == nil
}

// Delete removes a subject's reference image. Missing images are ignored.
func (g *Gallery) Delete(subjectID string) error {
	err := os.Remove(g.path(subjectID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete reference: %w", err)
	}
	return nil
}

// Subjects lists every subject with a stored reference image, sorted.
func (g *Gallery) Subjects() ([]string, error) {
	entries, err := os.ReadDir(g.dir)
	if err != nil {
		return nil, fmt.Errorf("list gallery: %w", err)
	}

	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".jpg") {
			continue
		}
		out = append(out, strings.TrimSuffix(name, ".jpg"))
	}
	sort.Strings(out)
	return out, nil
}
