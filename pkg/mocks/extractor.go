package mocks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/user/mediachunk/pkg/ports"
)

// ArchiveExtractor is a mock implementation of ports.ArchiveExtractor that
// writes Files into the destination directory.
type ArchiveExtractor struct {
	Files map[string][]byte
	Err   error

	// Recorded calls for verification
	Archive string
	Dest    string
}

func (m *ArchiveExtractor) Extract(ctx context.Context, archivePath, destDir string) error {
	m.Archive, m.Dest = archivePath, destDir
	if m.Err != nil {
		return m.Err
	}
	for name, data := range m.Files {
		p := filepath.Join(destDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(p, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// PDFRasterizer is a mock implementation of ports.PDFRasterizer writing
// Page once per page.
type PDFRasterizer struct {
	Pages int
	Page  []byte
	Err   error

	// Recorded calls for verification
	LastPage int
}

func (m *PDFRasterizer) Rasterize(ctx context.Context, pdfPath, outDir string, lastPage int) ([]string, error) {
	m.LastPage = lastPage
	if m.Err != nil {
		return nil, m.Err
	}
	n := m.Pages
	if lastPage > 0 && lastPage < n {
		n = lastPage
	}
	base := filepath.Base(pdfPath)
	base = base[:len(base)-len(filepath.Ext(base))]

	paths := make([]string, 0, n)
	for i := 0; i < n; i++ {
		p := filepath.Join(outDir, fmt.Sprintf("%s%09d.jpeg", base, i))
		if err := os.WriteFile(p, m.Page, 0o644); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

var (
	_ ports.ArchiveExtractor = (*ArchiveExtractor)(nil)
	_ ports.PDFRasterizer    = (*PDFRasterizer)(nil)
)
