// Package stream serves local source assets to the browser's video
// elements. Seeking depends on byte-range support, so the server
// implements single-range requests itself instead of relying on
// http.ServeContent's multipart handling.
package stream

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidRange  = errors.New("invalid range format")
	ErrUnsatisfiable = errors.New("range not satisfiable")
)

// ByteRange is an inclusive byte span of an asset.
type ByteRange struct {
	Start int64
	End   int64
}

func (r ByteRange) ContentLength() int64 {
	return r.End - r.Start + 1
}

func (r ByteRange) ContentRange(total int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, total)
}

// ParseRange interprets a Range header against an asset of the given
// size. An empty header returns ok=false with no error. Multi-range
// requests are narrowed to their first span, which is what video
// elements send in practice.
func ParseRange(header string, size int64) (ByteRange, bool, error) {
	if header == "" {
		return ByteRange{}, false, nil
	}

	if !strings.HasPrefix(header, "bytes=") {
		return ByteRange{}, false, ErrInvalidRange
	}

	spec := strings.TrimPrefix(header, "bytes=")
	if idx := strings.Index(spec, ","); idx != -1 {
		spec = strings.TrimSpace(spec[:idx])
	}

	parts := strings.Split(spec, "-")
	if len(parts) != 2 {
		return ByteRange{}, false, ErrInvalidRange
	}

	var start, end int64
	var err error

	if parts[0] == "" {
		suffixLen, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || suffixLen <= 0 {
			return ByteRange{}, false, ErrInvalidRange
		}
		start = size - suffixLen
		if start < 0 {
			start = 0
		}
		end = size - 1
	} else {
		start, err = strconv.ParseInt(parts[0], 10, 64)
		if err != nil || start < 0 {
			return ByteRange{}, false, ErrInvalidRange
		}

		if parts[1] == "" {
			end = size - 1
		} else {
			end, err = strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				return ByteRange{}, false, ErrInvalidRange
			}
		}
	}

	if start > end || start >= size {
		return ByteRange{}, false, ErrUnsatisfiable
	}

	if end >= size {
		end = size - 1
	}

	return ByteRange{Start: start, End: end}, true, nil
}
