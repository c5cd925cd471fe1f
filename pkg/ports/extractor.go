package ports

import "context"

// ArchiveExtractor unpacks an archive into a directory using an OS-level tool.
type ArchiveExtractor interface {
	Extract(ctx context.Context, archivePath, destDir string) error
}

// PDFRasterizer converts PDF pages to JPEG files.
type PDFRasterizer interface {
	// Rasterize writes one JPEG per page into outDir and returns their paths
	// in page order. lastPage limits conversion when positive.
	Rasterize(ctx context.Context, pdfPath, outDir string, lastPage int) ([]string, error)
}
