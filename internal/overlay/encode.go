package overlay

import (
	"bytes"
	"fmt"

	"gocv.io/x/gocv"
)

// StreamQuality is the JPEG quality of streamed frames.
const StreamQuality = 90

// EncodeJPEG compresses img at the given quality. The returned slice is owned
// by the caller.
func EncodeJPEG(img gocv.Mat, quality int) ([]byte, error) {
	if img.Empty() {
		return nil, fmt.Errorf("encode jpeg: empty frame")
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()
	return bytes.Clone(buf.GetBytes()), nil
}
