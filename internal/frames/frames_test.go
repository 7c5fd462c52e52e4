package frames

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTestJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestNewSourceSelection(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    any
		wantErr bool
	}{
		{"still image url", "http://cam.local/cgi-bin/viewer/video.jpg", &SnapshotSource{}, false},
		{"snapshot path", "http://cam.local/snapshot", &SnapshotSource{}, false},
		{"mjpeg stream", "https://cam.local/video_feed", &MJPEGSource{}, false},
		{"empty descriptor", "", nil, true},
		{"whitespace descriptor", "   ", nil, true},
		{"unsupported scheme", "ftp://cam.local/feed", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := NewSource(tt.url, time.Second)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, src)
			assert.NoError(t, src.Close())
		})
	}
}

func TestSnapshotSourceGrab(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	payload := encodeTestJPEG(t, img)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	src := newSnapshotSource(server.URL+"/video.jpg", 5*time.Second)
	frame, err := src.Grab(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 32, frame.Image.Bounds().Dx())
	assert.WithinDuration(t, time.Now(), frame.Captured, time.Minute)
}

func TestSnapshotSourceBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "camera offline", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	src := newSnapshotSource(server.URL, 5*time.Second)
	_, err := src.Grab(context.Background())
	assert.Error(t, err)
}

func TestSnapshotSourceUndecodableFrame(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("this is not a jpeg"))
	}))
	defer server.Close()

	src := newSnapshotSource(server.URL, 5*time.Second)
	_, err := src.Grab(context.Background())
	assert.Error(t, err)
}

func TestMJPEGSourceGrab(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	payload := encodeTestJPEG(t, img)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		for i := 0; i < 3; i++ {
			_, _ = w.Write([]byte("--frame\r\nContent-Type: image/jpeg\r\n\r\n"))
			_, _ = w.Write(payload)
			_, _ = w.Write([]byte("\r\n"))
		}
		_, _ = w.Write([]byte("--frame--\r\n"))
	}))
	defer server.Close()

	src := newMJPEGSource(server.URL, 5*time.Second)
	defer src.Close()

	first, err := src.Grab(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 16, first.Image.Bounds().Dx())

	second, err := src.Grab(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 16, second.Image.Bounds().Dx())
}

func TestFlip180(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	img.SetRGBA(0, 0, red)
	img.SetRGBA(1, 1, blue)

	flipped := Flip180(img)
	assert.Equal(t, red, flipped.(*image.RGBA).RGBAAt(1, 1))
	assert.Equal(t, blue, flipped.(*image.RGBA).RGBAAt(0, 0))
}

func TestSlotLatestWins(t *testing.T) {
	slot := NewSlot()

	// Empty slot reports no frame.
	_, _, seq, ok := slot.Latest(0)
	assert.False(t, ok)
	assert.Zero(t, seq)

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	slot.Publish(img, []byte("frame-1"), time.Now())
	slot.Publish(img, []byte("frame-2"), time.Now())

	// The reader sees only the newest frame; frame-1 was dropped.
	_, data, seq, ok := slot.Latest(0)
	require.True(t, ok)
	assert.Equal(t, []byte("frame-2"), data)
	assert.Equal(t, uint64(2), seq)

	// Same sequence again means unchanged, nothing to process.
	_, _, _, ok = slot.Latest(seq)
	assert.False(t, ok)
}

func TestWriteLatestAtomicReplace(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")

	path, err := WriteLatest(dir, []byte("first"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "latest.jpg"), path)

	_, err = WriteLatest(dir, []byte("second"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestEncodeJPEGRoundTrip(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 8))
	data, err := EncodeJPEG(img)
	require.NoError(t, err)

	decoded, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 10, decoded.Bounds().Dx())
}
