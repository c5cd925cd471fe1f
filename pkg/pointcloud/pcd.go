// Package pointcloud reads PCD headers, converts legacy .bin point clouds to
// PCD and decides whether a dataset is 2D or 3D.
package pointcloud

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// recordSize is one x, y, z, intensity record of little-endian float32s.
const recordSize = 16

// versions lists the accepted values of the PCD VERSION field.
var versions = map[string]bool{
	"0.7": true, "0.6": true, "0.5": true, "0.4": true, "0.3": true, "0.2": true, "0.1": true,
	".7": true, ".6": true, ".5": true, ".4": true, ".3": true, ".2": true, ".1": true,
}

// Properties reads PCD header fields up to and including the DATA line.
// Comment lines are skipped.
func Properties(r io.Reader) (map[string]string, error) {
	kv := make(map[string]string)
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" && !strings.HasPrefix(line, "#") {
			k, v, ok := strings.Cut(line, " ")
			if !ok {
				return kv, fmt.Errorf("%w: %q", ErrMalformedHeader, strings.TrimSpace(line))
			}
			kv[k] = strings.TrimSpace(v)
			if strings.Contains(line, "DATA") {
				return kv, nil
			}
		}
		if err == io.EOF {
			return kv, nil
		}
		if err != nil {
			return kv, fmt.Errorf("read pcd header: %w", err)
		}
	}
}

// VerifyVersion reports whether r starts with a PCD header whose VERSION
// is one of the accepted values.
func VerifyVersion(r io.Reader) bool {
	kv, err := Properties(r)
	if err != nil {
		return false
	}
	v, ok := kv["VERSION"]
	return ok && versions[v]
}

// Size returns the WIDTH and HEIGHT header fields of the PCD file at path.
func Size(path string) (width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	return SizeOf(f)
}

// SizeOf returns the WIDTH and HEIGHT header fields of a PCD stream.
func SizeOf(r io.Reader) (width, height int, err error) {
	kv, err := Properties(r)
	if err != nil {
		return 0, 0, err
	}
	ws, okW := kv["WIDTH"]
	hs, okH := kv["HEIGHT"]
	if !okW || !okH {
		return 0, 0, ErrNoHeader
	}
	if width, err = strconv.Atoi(ws); err != nil {
		return 0, 0, fmt.Errorf("%w: WIDTH %q", ErrMalformedHeader, ws)
	}
	if height, err = strconv.Atoi(hs); err != nil {
		return 0, 0, fmt.Errorf("%w: HEIGHT %q", ErrMalformedHeader, hs)
	}
	return width, height, nil
}

// WritePCD writes the fixed binary PCD header followed by payload.
func WritePCD(w io.Writer, width, height int, payload []byte) error {
	header := []string{
		"VERSION 0.7",
		"FIELDS x y z intensity",
		"SIZE 4 4 4 4",
		"TYPE F F F F",
		"COUNT 1 1 1 1",
		fmt.Sprintf("WIDTH %d", width),
		fmt.Sprintf("HEIGHT %d", height),
		"VIEWPOINT 0 0 0 1 0 0 0",
		fmt.Sprintf("POINTS %d", width*height),
		"DATA binary",
	}
	var buf bytes.Buffer
	for _, line := range header {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// BinToPCD converts the records of a .bin point cloud to PCD bytes.
func BinToPCD(bin []byte) ([]byte, error) {
	if len(bin)%recordSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformedBin, len(bin))
	}
	var buf bytes.Buffer
	if err := WritePCD(&buf, len(bin)/recordSize, 1, bin); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ConvertBinToPCD writes a .pcd next to the .bin at path and returns the new
// path. The output is written to a temporary file and renamed into place.
// The source is removed when deleteSource is set.
func ConvertBinToPCD(path string, deleteSource bool) (string, error) {
	bin, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	data, err := BinToPCD(bin)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}

	pcdPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".pcd"
	tmp := filepath.Join(filepath.Dir(path), "."+uuid.NewString()+".pcd.tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, pcdPath); err != nil {
		os.Remove(tmp)
		return "", err
	}

	if deleteSource {
		if err := os.Remove(path); err != nil {
			return pcdPath, err
		}
	}
	return pcdPath, nil
}
