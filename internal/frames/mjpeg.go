package frames

import (
	"context"
	"fmt"
	"image/jpeg"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"
)

// MJPEGSource reads a continuously-open multipart/x-mixed-replace HTTP
// stream, one JPEG part per frame. On stream exhaustion or a read error the
// connection is dropped and reopened on the next Grab.
type MJPEGSource struct {
	url     string
	timeout time.Duration

	// lifetime context for the streaming connection; per-grab deadlines
	// are enforced with a watchdog that closes the body, a canceled
	// request context would tear the stream down after every frame.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	resp   *http.Response
	reader *multipart.Reader
}

func newMJPEGSource(url string, timeout time.Duration) *MJPEGSource {
	ctx, cancel := context.WithCancel(context.Background())
	return &MJPEGSource{url: url, timeout: timeout, ctx: ctx, cancel: cancel}
}

// open establishes the streaming connection and positions the multipart
// reader at the first part.
func (s *MJPEGSource) open() error {
	req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("creating stream request: %w", err)
	}

	client := &http.Client{Transport: http.DefaultTransport}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("opening stream: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return fmt.Errorf("stream open returned status %d", resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		resp.Body.Close()
		return fmt.Errorf("stream is not multipart MJPEG (content-type %q)", resp.Header.Get("Content-Type"))
	}

	s.resp = resp
	s.reader = multipart.NewReader(resp.Body, params["boundary"])
	return nil
}

// nextPart reads one multipart section with the grab timeout enforced by a
// watchdog that closes the connection if the camera stalls.
func (s *MJPEGSource) nextPart() (*multipart.Part, error) {
	body := s.resp.Body
	watchdog := time.AfterFunc(s.timeout, func() { body.Close() })
	defer watchdog.Stop()
	return s.reader.NextPart()
}

// Grab returns the next frame from the stream, reopening it if needed.
func (s *MJPEGSource) Grab(ctx context.Context) (*Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.reader == nil {
		if err := s.open(); err != nil {
			return nil, err
		}
	}

	part, err := s.nextPart()
	if err != nil {
		// Stream exhausted or stalled, drop the connection and reopen once.
		s.closeLocked()
		if err := s.open(); err != nil {
			return nil, fmt.Errorf("reopening stream: %w", err)
		}
		part, err = s.nextPart()
		if err != nil {
			s.closeLocked()
			return nil, fmt.Errorf("reading stream part: %w", err)
		}
	}
	defer part.Close()

	img, err := jpeg.Decode(part)
	if err != nil {
		return nil, fmt.Errorf("decoding stream frame: %w", err)
	}

	return &Frame{Image: img, Captured: time.Now()}, nil
}

// Close drops the streaming connection.
func (s *MJPEGSource) Close() error {
	s.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
	return nil
}

func (s *MJPEGSource) closeLocked() {
	if s.resp != nil {
		s.resp.Body.Close()
		s.resp = nil
	}
	s.reader = nil
}
