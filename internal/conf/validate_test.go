package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validSettings() *Settings {
	return &Settings{
		Detector: DetectorSettings{
			Endpoint:       "http://localhost:8500/detect",
			Confidence:     0.2,
			VehicleClasses: []int{2, 3, 5, 7},
			MinBoxArea:     800,
		},
		Occupancy: OccupancySettings{
			StallOverlap:       0.25,
			BoxOverlap:         0.25,
			ShrinkMargin:       10,
			KeepBottomFraction: 0.6,
			HistoryLength:      3,
		},
		Realtime: RealtimeSettings{
			CaptureInterval:   2 * time.Second,
			DetectInterval:    2 * time.Second,
			PollInterval:      500 * time.Millisecond,
			SettleDelay:       time.Second,
			FetchTimeout:      10 * time.Second,
			RetryDelay:        2 * time.Second,
			ReconcileInterval: 30 * time.Second,
			Retention:         RetentionSettings{Enabled: true, KeepFiles: 5, CheckInterval: time.Minute},
		},
		Output: OutputSettings{
			BasePath: "data/",
			SQLite:   SQLiteSettings{Path: "data/spotection.db"},
		},
	}
}

func TestValidateSettings(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
	}{
		{"valid settings", func(s *Settings) {}, false},
		{"nil settings", nil, true},
		{"empty detector endpoint", func(s *Settings) { s.Detector.Endpoint = "" }, true},
		{"confidence above one", func(s *Settings) { s.Detector.Confidence = 1.5 }, true},
		{"negative min box area", func(s *Settings) { s.Detector.MinBoxArea = -1 }, true},
		{"zero stall overlap", func(s *Settings) { s.Occupancy.StallOverlap = 0 }, true},
		{"zero history length", func(s *Settings) { s.Occupancy.HistoryLength = 0 }, true},
		{"zero retention keep", func(s *Settings) { s.Realtime.Retention.KeepFiles = 0 }, true},
		{"zero fetch timeout", func(s *Settings) { s.Realtime.FetchTimeout = 0 }, true},
		{"negative capture interval", func(s *Settings) { s.Realtime.CaptureInterval = -time.Second }, true},
		{"zero reconcile interval", func(s *Settings) { s.Realtime.ReconcileInterval = 0 }, true},
		{"negative settle delay", func(s *Settings) { s.Realtime.SettleDelay = -time.Second }, true},
		{"zero settle delay allowed", func(s *Settings) { s.Realtime.SettleDelay = 0 }, false},
		{"retention enabled without interval", func(s *Settings) { s.Realtime.Retention.CheckInterval = 0 }, true},
		{"retention disabled ignores interval", func(s *Settings) {
			s.Realtime.Retention.Enabled = false
			s.Realtime.Retention.CheckInterval = 0
		}, false},
		{"empty base path", func(s *Settings) { s.Output.BasePath = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var settings *Settings
			if tt.mutate != nil {
				settings = validSettings()
				tt.mutate(settings)
			}
			err := ValidateSettings(settings)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLotPaths(t *testing.T) {
	s := validSettings()

	assert.Equal(t, "data/lot7", s.LotBasePath(7))
	assert.Equal(t, "data/lot7/frames", s.LotFramesPath(7))
	assert.Equal(t, "data/lot7/overlays", s.LotOverlaysPath(7))
	assert.Equal(t, "data/lot7/maps", s.LotMapsPath(7))
	assert.Equal(t, "data/lot7/lot_config.json", s.LotStallConfigPath(7))
}
