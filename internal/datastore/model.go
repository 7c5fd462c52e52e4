// model.go this code defines the data model for the application
package datastore

import (
	"encoding/json"
	"time"
)

// Lot represents one monitored parking lot: its camera stream, flip
// transform and stall count. Each lot owns one supervised pipeline and a
// disjoint set of output folders.
type Lot struct {
	ID         uint   `gorm:"primaryKey"`
	Name       string `gorm:"not null"`
	StreamURL  string `gorm:"not null"`
	Flip       bool
	TotalSpots int
	CreatedAt  time.Time
}

// DetectionResult is the immutable per-cycle snapshot persisted for the
// dashboard: counts, the serialized per-stall map and the artifact paths.
// Rows are superseded by the next cycle's row, never mutated. The referenced
// image paths may point to files since pruned by the retention sweeper, so
// readers must check existence before serving them.
type DetectionResult struct {
	ID            uint `gorm:"primaryKey"`
	LotID         uint `gorm:"index:idx_detection_results_lot"`
	FramePath     string
	OverlayPath   string
	MapPath       string
	Timestamp     time.Time `gorm:"index"`
	OccupiedCount int
	FreeCount     int
	StallStatus   string `gorm:"type:text"` // JSON map stall id -> occupied
}

// EncodeStallStatus serializes a per-stall occupancy map for storage.
func EncodeStallStatus(status map[int]bool) (string, error) {
	data, err := json.Marshal(status)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeStallStatus parses the stored per-stall occupancy map.
func (d *DetectionResult) DecodeStallStatus() (map[int]bool, error) {
	status := make(map[int]bool)
	if d.StallStatus == "" {
		return status, nil
	}
	if err := json.Unmarshal([]byte(d.StallStatus), &status); err != nil {
		return nil, err
	}
	return status, nil
}
