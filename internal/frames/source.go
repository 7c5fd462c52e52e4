// Package frames acquires camera frames for one lot: single-shot snapshot
// URLs, MJPEG HTTP streams and RTSP sources, plus the single-slot
// latest-frame handoff between the capture and detect tasks.
package frames

import (
	"context"
	"fmt"
	"image"
	"net/url"
	"strings"
	"time"
)

// Frame is one captured camera frame.
type Frame struct {
	Image    image.Image
	Captured time.Time
}

// Source produces frames from a camera stream descriptor. Grab blocks until
// a frame is available or the context is done; implementations reopen
// exhausted streams internally.
type Source interface {
	Grab(ctx context.Context) (*Frame, error)
	Close() error
}

// NewSource selects a source implementation by inspecting the stream
// descriptor: rtsp:// URLs use an ffmpeg grab, http(s) URLs pointing at a
// still image use a single-shot fetch, any other http(s) URL is treated as
// an MJPEG stream. An unusable descriptor is a synchronous error so lot
// startup can fail loudly instead of spinning on a broken source.
func NewSource(streamURL string, fetchTimeout time.Duration) (Source, error) {
	if strings.TrimSpace(streamURL) == "" {
		return nil, fmt.Errorf("empty stream source")
	}

	parsed, err := url.Parse(streamURL)
	if err != nil {
		return nil, fmt.Errorf("invalid stream source %q: %w", streamURL, err)
	}

	switch parsed.Scheme {
	case "rtsp":
		return newRTSPSource(streamURL, fetchTimeout)
	case "http", "https":
		if isSnapshotURL(parsed) {
			return newSnapshotSource(streamURL, fetchTimeout), nil
		}
		return newMJPEGSource(streamURL, fetchTimeout), nil
	default:
		return nil, fmt.Errorf("unsupported stream source scheme %q", parsed.Scheme)
	}
}

// isSnapshotURL reports whether the URL addresses a single still image
// rather than a continuous stream.
func isSnapshotURL(u *url.URL) bool {
	path := strings.ToLower(u.Path)
	return strings.HasSuffix(path, ".jpg") || strings.HasSuffix(path, ".jpeg") ||
		strings.Contains(path, "snapshot")
}

// Flip180 rotates the image by 180 degrees, for cameras mounted upside
// down. The lot's flip flag is re-read every capture cycle so admin changes
// apply live.
func Flip180(src image.Image) image.Image {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dst.Set(width-1-x, height-1-y, src.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}
	return dst
}
