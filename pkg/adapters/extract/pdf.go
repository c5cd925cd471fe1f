package extract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/user/mediachunk/pkg/adapters/logger"
	"github.com/user/mediachunk/pkg/ports"
)

// Rasterizer implements ports.PDFRasterizer with poppler's pdftoppm.
type Rasterizer struct {
	// Tool is the pdftoppm path. Empty selects pdftoppm on PATH.
	Tool string

	// DPI is the rendering resolution, 200 when zero.
	DPI int

	Logger ports.Logger
}

// NewRasterizer creates a Rasterizer.
func NewRasterizer(tool string, log ports.Logger) *Rasterizer {
	return &Rasterizer{Tool: tool, Logger: log}
}

// Rasterize renders pdfPath into outDir as {base}{page:09d}.jpeg files,
// pages numbered from zero, and returns them in page order.
func (r *Rasterizer) Rasterize(ctx context.Context, pdfPath, outDir string, lastPage int) ([]string, error) {
	tool := r.Tool
	if tool == "" {
		p, err := exec.LookPath("pdftoppm")
		if err != nil {
			return nil, ErrPdftoppmNotFound
		}
		tool = p
	}

	base := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	work, err := os.MkdirTemp(outDir, ".pdftoppm-")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(work)

	args := pdfArgs(pdfPath, filepath.Join(work, "page"), r.DPI, lastPage)
	logger.OrNoop(r.Logger).WithComponent("extract").Debug("Rasterizing %s", pdfPath)

	cmd := exec.CommandContext(ctx, tool, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	return collectPages(work, outDir, base)
}

func pdfArgs(pdfPath, outRoot string, dpi, lastPage int) []string {
	if dpi <= 0 {
		dpi = 200
	}
	args := []string{"-jpeg", "-r", strconv.Itoa(dpi)}
	if lastPage > 0 {
		args = append(args, "-l", strconv.Itoa(lastPage))
	}
	return append(args, pdfPath, outRoot)
}

var rePage = regexp.MustCompile(`-(\d+)\.jpe?g$`)

// collectPages moves pdftoppm output from work into outDir, renaming page
// N (one-based) to {base}{N-1:09d}.jpeg.
func collectPages(work, outDir, base string) ([]string, error) {
	entries, err := os.ReadDir(work)
	if err != nil {
		return nil, err
	}

	type page struct {
		n    int
		path string
	}
	var pages []page
	for _, e := range entries {
		m := rePage.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		pages = append(pages, page{n: n, path: filepath.Join(work, e.Name())})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].n < pages[j].n })

	out := make([]string, 0, len(pages))
	for _, p := range pages {
		dest := filepath.Join(outDir, fmt.Sprintf("%s%09d.jpeg", base, p.n-1))
		if err := os.Rename(p.path, dest); err != nil {
			return nil, fmt.Errorf("move page %d: %w", p.n, err)
		}
		out = append(out, dest)
	}
	return out, nil
}

var _ ports.PDFRasterizer = (*Rasterizer)(nil)
