package detector

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPDetectorDecodesDetections(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, "http://detector.local/detect",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "0.2", req.URL.Query().Get("confidence"))
			assert.Equal(t, "image/jpeg", req.Header.Get("Content-Type"))
			return httpmock.NewStringResponse(http.StatusOK, `{
				"detections": [
					{"x1": 10, "y1": 20, "x2": 110, "y2": 90, "class_id": 2, "confidence": 0.91},
					{"x1": 200, "y1": 50, "x2": 260, "y2": 120, "class_id": 7, "confidence": 0.48}
				]
			}`), nil
		})

	d := NewHTTPDetector("http://detector.local/detect", 0.2, 5*time.Second)
	d.client = http.DefaultClient // httpmock patches the default transport

	boxes, err := d.Detect(context.Background(), []byte("not-a-real-jpeg"))
	require.NoError(t, err)
	require.Len(t, boxes, 2)
	assert.Equal(t, 2, boxes[0].ClassID)
	assert.InDelta(t, 0.91, boxes[0].Confidence, 1e-9)
	assert.InDelta(t, 100.0, boxes[0].Rect.Width(), 1e-9)
	assert.Equal(t, 7, boxes[1].ClassID)
}

func TestHTTPDetectorEmptyResult(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, "http://detector.local/detect",
		httpmock.NewStringResponder(http.StatusOK, `{"detections": []}`))

	d := NewHTTPDetector("http://detector.local/detect", 0.2, 5*time.Second)
	d.client = http.DefaultClient

	boxes, err := d.Detect(context.Background(), []byte("frame"))
	require.NoError(t, err)
	assert.Empty(t, boxes)
}

func TestHTTPDetectorServerError(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, "http://detector.local/detect",
		httpmock.NewStringResponder(http.StatusInternalServerError, "inference backend down"))

	d := NewHTTPDetector("http://detector.local/detect", 0.2, 5*time.Second)
	d.client = http.DefaultClient

	_, err := d.Detect(context.Background(), []byte("frame"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
