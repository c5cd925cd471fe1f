package pointcloud

import "errors"

var (
	// ErrMalformedBin is returned when a .bin file is not a whole number of
	// x, y, z, intensity float32 records.
	ErrMalformedBin = errors.New("pointcloud: bin payload is not a multiple of 16 bytes")

	// ErrMalformedHeader is returned when a PCD header line has no value or
	// the WIDTH/HEIGHT fields are not integers.
	ErrMalformedHeader = errors.New("pointcloud: malformed pcd header")

	// ErrNoHeader is returned when a PCD header carries no WIDTH/HEIGHT fields.
	ErrNoHeader = errors.New("pointcloud: pcd header has no size fields")
)
