package frames

import (
	"context"
	"fmt"
	"image/jpeg"
	"net/http"
	"time"
)

// SnapshotSource fetches a fresh still image over HTTP on every Grab.
// Cheap cameras expose a CGI endpoint like /cgi-bin/viewer/video.jpg that
// returns one JPEG per request.
type SnapshotSource struct {
	url    string
	client *http.Client
}

func newSnapshotSource(url string, timeout time.Duration) *SnapshotSource {
	return &SnapshotSource{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Grab performs one HTTP fetch and decodes the returned JPEG.
func (s *SnapshotSource) Grab(ctx context.Context) (*Frame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating snapshot request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot fetch returned status %d", resp.StatusCode)
	}

	img, err := jpeg.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}

	return &Frame{Image: img, Captured: time.Now()}, nil
}

// Close is a no-op, snapshot fetches hold no persistent connection.
func (s *SnapshotSource) Close() error { return nil }
