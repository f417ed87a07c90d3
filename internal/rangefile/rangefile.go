// Package rangefile implements RFC 7233 single-range byte-range parsing and
// clamping for the video streaming endpoint. It builds no headers or
// response; the stream handler in internal/api does that.
package rangefile

import (
	"strconv"
	"strings"

	"ott-server/internal/apperr"
)

// Range is a resolved, validated byte range over a file of known size.
// Start and End are both inclusive byte offsets.
type Range struct {
	Start, End int64
}

// Length returns the number of bytes the range covers.
func (r Range) Length() int64 {
	return r.End - r.Start + 1
}

// NoRange signals that the request carried no Range header at all; the
// caller should serve the full file with a 200 and Accept-Ranges: bytes.
var NoRange = Range{Start: -1, End: -1}

// IsFull reports whether r is the sentinel NoRange value.
func (r Range) IsFull() bool { return r == NoRange }

// Parse parses the value of a Range header (without the leading "Range: ")
// against a file of size fileSize. An empty header returns NoRange. Only
// the single-range and suffix ("bytes=-N") forms are supported, per RFC
// 7233 as scoped by the spec.
func Parse(header string, fileSize int64) (Range, error) {
	if header == "" {
		return NoRange, nil
	}

	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return Range{}, apperr.RangeNotSatisfiablef("unsupported range unit")
	}
	spec := strings.TrimPrefix(header, prefix)
	if strings.Contains(spec, ",") {
		return Range{}, apperr.RangeNotSatisfiablef("multiple ranges not supported")
	}

	dash := strings.IndexByte(spec, '-')
	if dash < 0 {
		return Range{}, apperr.RangeNotSatisfiablef("malformed range")
	}
	startStr, endStr := spec[:dash], spec[dash+1:]

	// Suffix form: bytes=-N means the last N bytes of the file.
	if startStr == "" {
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n < 0 {
			return Range{}, apperr.RangeNotSatisfiablef("malformed suffix range")
		}
		if n > fileSize {
			n = fileSize
		}
		start := fileSize - n
		if start < 0 {
			start = 0
		}
		return Range{Start: start, End: fileSize - 1}, nil
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return Range{}, apperr.RangeNotSatisfiablef("malformed range start")
	}

	var end int64
	if endStr == "" {
		end = fileSize - 1
	} else {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			return Range{}, apperr.RangeNotSatisfiablef("malformed range end")
		}
	}
	if end >= fileSize {
		end = fileSize - 1
	}

	if start >= fileSize || end < start {
		return Range{}, apperr.RangeNotSatisfiablef("range not satisfiable")
	}

	return Range{Start: start, End: end}, nil
}
