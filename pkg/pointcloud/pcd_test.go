package pointcloud

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func binRecords(n int) []byte {
	var buf bytes.Buffer
	for i := 0; i < n; i++ {
		for _, f := range []float32{float32(i), float32(i) * 2, -float32(i), 0.5} {
			binary.Write(&buf, binary.LittleEndian, math.Float32bits(f))
		}
	}
	return buf.Bytes()
}

const expectedHeader = "VERSION 0.7\n" +
	"FIELDS x y z intensity\n" +
	"SIZE 4 4 4 4\n" +
	"TYPE F F F F\n" +
	"COUNT 1 1 1 1\n" +
	"WIDTH 3\n" +
	"HEIGHT 1\n" +
	"VIEWPOINT 0 0 0 1 0 0 0\n" +
	"POINTS 3\n" +
	"DATA binary\n"

func TestConvertBinToPCD(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "cloud.bin")
	records := binRecords(3)
	require.NoError(t, os.WriteFile(src, records, 0o644))

	out, err := ConvertBinToPCD(src, true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cloud.pcd"), out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, expectedHeader, string(data[:len(expectedHeader)]))
	assert.Equal(t, records, data[len(expectedHeader):])

	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err), "source should be removed")

	w, h, err := Size(out)
	require.NoError(t, err)
	assert.Equal(t, 3, w)
	assert.Equal(t, 1, h)
}

func TestConvertBinToPCD_KeepSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.bin")
	require.NoError(t, os.WriteFile(src, binRecords(1), 0o644))

	_, err := ConvertBinToPCD(src, false)
	require.NoError(t, err)
	_, err = os.Stat(src)
	assert.NoError(t, err)
}

func TestBinToPCD_PartialRecord(t *testing.T) {
	_, err := BinToPCD(make([]byte, 17))
	assert.ErrorIs(t, err, ErrMalformedBin)

	data, err := BinToPCD(nil)
	require.NoError(t, err)
	assert.Contains(t, string(data), "POINTS 0\n")
}

func TestProperties(t *testing.T) {
	header := "# .PCD v0.7\nVERSION .7\nFIELDS x y z\nWIDTH 640\nHEIGHT 480\nDATA ascii\n1 2 3\n"
	kv, err := Properties(strings.NewReader(header))
	require.NoError(t, err)
	assert.Equal(t, ".7", kv["VERSION"])
	assert.Equal(t, "x y z", kv["FIELDS"])
	assert.Equal(t, "ascii", kv["DATA"])
	assert.NotContains(t, kv, "1")

	w, h, err := SizeOf(strings.NewReader(header))
	require.NoError(t, err)
	assert.Equal(t, [2]int{640, 480}, [2]int{w, h})
}

func TestVerifyVersion(t *testing.T) {
	tests := []struct {
		header string
		want   bool
	}{
		{"VERSION 0.7\nDATA binary\n", true},
		{"VERSION .5\nDATA binary\n", true},
		{"VERSION 0.8\nDATA binary\n", false},
		{"FIELDS x\nDATA binary\n", false},
		{"garbage\n", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, VerifyVersion(strings.NewReader(tt.header)), tt.header)
	}
}

func TestSizeOf_Missing(t *testing.T) {
	_, _, err := SizeOf(strings.NewReader("VERSION 0.7\nDATA binary\n"))
	assert.ErrorIs(t, err, ErrNoHeader)

	_, _, err = SizeOf(strings.NewReader("WIDTH x\nHEIGHT 1\nDATA binary\n"))
	assert.ErrorIs(t, err, ErrMalformedHeader)
}
