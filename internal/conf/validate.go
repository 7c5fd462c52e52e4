package conf

import (
	"errors"
	"fmt"
	"time"
)

// ValidateSettings checks that the loaded settings are internally consistent.
// It returns an error describing the first problem found.
func ValidateSettings(settings *Settings) error {
	if settings == nil {
		return errors.New("settings is nil")
	}

	if settings.Detector.Endpoint == "" {
		return errors.New("detector.endpoint must not be empty")
	}
	if settings.Detector.Confidence < 0 || settings.Detector.Confidence > 1 {
		return fmt.Errorf("detector.confidence must be between 0 and 1, got %v", settings.Detector.Confidence)
	}
	if settings.Detector.MinBoxArea < 0 {
		return fmt.Errorf("detector.minboxarea must not be negative, got %v", settings.Detector.MinBoxArea)
	}

	if settings.Occupancy.StallOverlap <= 0 || settings.Occupancy.StallOverlap > 1 {
		return fmt.Errorf("occupancy.stalloverlap must be in (0, 1], got %v", settings.Occupancy.StallOverlap)
	}
	if settings.Occupancy.BoxOverlap <= 0 || settings.Occupancy.BoxOverlap > 1 {
		return fmt.Errorf("occupancy.boxoverlap must be in (0, 1], got %v", settings.Occupancy.BoxOverlap)
	}
	if settings.Occupancy.KeepBottomFraction <= 0 || settings.Occupancy.KeepBottomFraction > 1 {
		return fmt.Errorf("occupancy.keepbottomfraction must be in (0, 1], got %v", settings.Occupancy.KeepBottomFraction)
	}
	if settings.Occupancy.HistoryLength < 1 {
		return fmt.Errorf("occupancy.historylength must be at least 1, got %d", settings.Occupancy.HistoryLength)
	}

	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"realtime.captureinterval", settings.Realtime.CaptureInterval},
		{"realtime.detectinterval", settings.Realtime.DetectInterval},
		{"realtime.pollinterval", settings.Realtime.PollInterval},
		{"realtime.fetchtimeout", settings.Realtime.FetchTimeout},
		{"realtime.retrydelay", settings.Realtime.RetryDelay},
		{"realtime.reconcileinterval", settings.Realtime.ReconcileInterval},
	} {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %v", d.name, d.value)
		}
	}
	if settings.Realtime.SettleDelay < 0 {
		return fmt.Errorf("realtime.settledelay must not be negative, got %v", settings.Realtime.SettleDelay)
	}
	if settings.Realtime.Retention.Enabled && settings.Realtime.Retention.CheckInterval <= 0 {
		return fmt.Errorf("realtime.retention.checkinterval must be positive, got %v", settings.Realtime.Retention.CheckInterval)
	}

	if settings.Realtime.Retention.KeepFiles < 1 {
		return fmt.Errorf("realtime.retention.keepfiles must be at least 1, got %d", settings.Realtime.Retention.KeepFiles)
	}

	if settings.Output.BasePath == "" {
		return errors.New("output.basepath must not be empty")
	}
	if settings.Output.SQLite.Path == "" {
		return errors.New("output.sqlite.path must not be empty")
	}

	return nil
}
