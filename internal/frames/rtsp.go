package frames

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"os/exec"
	"sync"
	"time"
)

// RTSPSource grabs single frames from an RTSP camera by running ffmpeg per
// cycle. At the 2 second capture cadence a one-shot grab is simpler and
// more robust than holding a decoder open across camera hiccups.
type RTSPSource struct {
	url     string
	timeout time.Duration
	ffmpeg  string
}

// BoundedBuffer is a thread-safe bounded buffer for storing the most recent
// stderr output from ffmpeg.
type BoundedBuffer struct {
	buffer bytes.Buffer
	mu     sync.Mutex
	size   int
}

// NewBoundedBuffer creates a new BoundedBuffer with the specified size
func NewBoundedBuffer(size int) *BoundedBuffer {
	return &BoundedBuffer{size: size}
}

// Write implements the io.Writer interface
func (b *BoundedBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.buffer.Len()+len(p) > b.size {
		// If the new data would exceed the buffer size, trim the existing data
		b.buffer.Truncate(0)
		if len(p) > b.size {
			p = p[len(p)-b.size:]
		}
	}
	return b.buffer.Write(p)
}

// String returns the contents of the buffer as a string
func (b *BoundedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer.String()
}

func newRTSPSource(url string, timeout time.Duration) (*RTSPSource, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("rtsp source requires ffmpeg on PATH: %w", err)
	}
	return &RTSPSource{url: url, timeout: timeout, ffmpeg: ffmpegPath}, nil
}

// Grab runs one ffmpeg invocation that decodes a single frame from the
// stream and writes it to stdout as JPEG.
func (s *RTSPSource) Grab(ctx context.Context) (*Frame, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.ffmpeg,
		"-rtsp_transport", "tcp",
		"-i", s.url,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"-q:v", "2",
		"pipe:1",
	)

	var stdout bytes.Buffer
	stderr := NewBoundedBuffer(4096)
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg frame grab failed: %w (%s)", err, stderr.String())
	}

	img, err := jpeg.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decoding ffmpeg output: %w", err)
	}

	return &Frame{Image: img, Captured: time.Now()}, nil
}

// Close is a no-op, each grab runs its own short-lived process.
func (s *RTSPSource) Close() error { return nil }
