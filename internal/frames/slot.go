package frames

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Slot is the single-writer/single-reader handoff between a lot's capture
// and detect tasks. The capture task overwrites the slot every cycle; the
// detect task consumes whatever is currently latest. Frames are dropped,
// never queued: detect is latest-wins and skipped frames are expected.
//
// The monotonically increasing sequence number is the explicit modification
// marker, replacing the "newest file in folder" pattern and its directory
// listing races.
type Slot struct {
	mu       sync.RWMutex
	jpeg     []byte
	image    image.Image
	seq      uint64
	captured time.Time
}

// NewSlot returns an empty slot; Seq 0 means no frame published yet.
func NewSlot() *Slot {
	return &Slot{}
}

// Publish replaces the slot contents with a new frame.
func (s *Slot) Publish(img image.Image, jpegData []byte, captured time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.image = img
	s.jpeg = jpegData
	s.captured = captured
	s.seq++
}

// Latest returns the current frame when its sequence number is newer than
// afterSeq. ok is false when the slot is empty or unchanged.
func (s *Slot) Latest(afterSeq uint64) (img image.Image, jpegData []byte, seq uint64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.seq == 0 || s.seq <= afterSeq {
		return nil, nil, s.seq, false
	}
	return s.image, s.jpeg, s.seq, true
}

// Seq returns the current sequence number.
func (s *Slot) Seq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

// WriteLatest persists the frame as dir/latest.jpg via temp file + rename,
// so dashboard consumers never observe a partially written image.
func WriteLatest(dir string, jpegData []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating frames directory %s: %w", dir, err)
	}

	tempPath := filepath.Join(dir, fmt.Sprintf(".latest-%s.jpg", uuid.New().String()))
	if err := os.WriteFile(tempPath, jpegData, 0o644); err != nil {
		return "", fmt.Errorf("writing temporary frame: %w", err)
	}

	finalPath := filepath.Join(dir, "latest.jpg")
	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("replacing latest frame: %w", err)
	}
	return finalPath, nil
}

// EncodeJPEG serializes a frame for the detector capability and the
// latest.jpg artifact.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encoding frame: %w", err)
	}
	return buf.Bytes(), nil
}
