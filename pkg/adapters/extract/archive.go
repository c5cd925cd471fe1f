// Package extract unpacks archives and rasterizes PDFs with external tools.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/user/mediachunk/pkg/adapters/logger"
	"github.com/user/mediachunk/pkg/ports"
)

var (
	// ErrToolNotFound is returned when no supported unpacker is installed.
	ErrToolNotFound = errors.New("extract: no archive tool found")

	// ErrUnknownTool is returned for an unsupported tool name.
	ErrUnknownTool = errors.New("extract: unknown archive tool")

	// ErrPdftoppmNotFound is returned when pdftoppm is not installed.
	ErrPdftoppmNotFound = errors.New("extract: pdftoppm not found")
)

// ArchiveTools lists the supported unpackers in discovery order.
var ArchiveTools = []string{"7z", "7zz", "bsdtar", "patool"}

// Archiver implements ports.ArchiveExtractor by running an OS-level unpacker.
type Archiver struct {
	// Tool is the unpacker name or path. Empty selects the first of
	// ArchiveTools found on PATH.
	Tool string

	Logger ports.Logger
}

// NewArchiver creates an Archiver using tool, or discovery when empty.
func NewArchiver(tool string, log ports.Logger) *Archiver {
	return &Archiver{Tool: tool, Logger: log}
}

// Extract unpacks archivePath into destDir.
func (a *Archiver) Extract(ctx context.Context, archivePath, destDir string) error {
	tool, err := a.resolve()
	if err != nil {
		return err
	}
	args, err := archiveArgs(tool, archivePath, destDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", destDir, err)
	}

	logger.OrNoop(a.Logger).WithComponent("extract").Debug("Extracting %s with %s", archivePath, tool)

	cmd := exec.CommandContext(ctx, tool, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s failed: %w: %s", filepath.Base(tool), err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (a *Archiver) resolve() (string, error) {
	if a.Tool != "" {
		return a.Tool, nil
	}
	for _, name := range ArchiveTools {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", ErrToolNotFound
}

func archiveArgs(tool, archivePath, destDir string) ([]string, error) {
	switch strings.TrimSuffix(filepath.Base(tool), ".exe") {
	case "7z", "7zz", "7za":
		return []string{"x", "-y", "-o" + destDir, archivePath}, nil
	case "bsdtar", "tar":
		return []string{"-xf", archivePath, "-C", destDir}, nil
	case "patool":
		return []string{"--non-interactive", "extract", "--outdir", destDir, archivePath}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownTool, tool)
}

var _ ports.ArchiveExtractor = (*Archiver)(nil)
