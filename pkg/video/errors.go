package video

import "errors"

// ErrDecodeResourceFault marks a failure while releasing decoder resources.
// It is logged by the decode guard and never returned to callers.
var ErrDecodeResourceFault = errors.New("video: decode resource fault")

// ErrNoFrames is returned when a video yields no frame for a request that needs one.
var ErrNoFrames = errors.New("video: no frames decoded")
