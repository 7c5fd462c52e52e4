package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/trippieshadow66/Spotection/internal/geometry"
)

// HTTPDetector calls an external inference service over HTTP. The service
// receives the JPEG frame as the request body and responds with a JSON
// detection list.
type HTTPDetector struct {
	endpoint   string
	confidence float64
	client     *http.Client
}

// detectionResponse mirrors the inference service's response body.
type detectionResponse struct {
	Detections []struct {
		X1         float64 `json:"x1"`
		Y1         float64 `json:"y1"`
		X2         float64 `json:"x2"`
		Y2         float64 `json:"y2"`
		ClassID    int     `json:"class_id"`
		Confidence float64 `json:"confidence"`
	} `json:"detections"`
}

// NewHTTPDetector creates a detector client for the given inference
// endpoint. The confidence threshold is passed to the service with every
// request.
func NewHTTPDetector(endpoint string, confidence float64, timeout time.Duration) *HTTPDetector {
	return &HTTPDetector{
		endpoint:   endpoint,
		confidence: confidence,
		client:     &http.Client{Timeout: timeout},
	}
}

// Detect posts the frame to the inference service and decodes the returned
// detection list.
func (d *HTTPDetector) Detect(ctx context.Context, imageJPEG []byte) ([]Box, error) {
	reqURL, err := url.Parse(d.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid detector endpoint %s: %w", d.endpoint, err)
	}
	query := reqURL.Query()
	query.Set("confidence", strconv.FormatFloat(d.confidence, 'f', -1, 64))
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL.String(), bytes.NewReader(imageJPEG))
	if err != nil {
		return nil, fmt.Errorf("creating detector request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling detector: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("detector returned status %d: %s", resp.StatusCode, string(body))
	}

	var decoded detectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding detector response: %w", err)
	}

	boxes := make([]Box, 0, len(decoded.Detections))
	for _, det := range decoded.Detections {
		boxes = append(boxes, Box{
			Rect:       geometry.Rect{X1: det.X1, Y1: det.Y1, X2: det.X2, Y2: det.Y2},
			ClassID:    det.ClassID,
			Confidence: det.Confidence,
		})
	}
	return boxes, nil
}
