// config.go: defines the Settings struct and loads configuration with viper
package conf

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LogConfig defines the configuration for a file log
type LogConfig struct {
	Enabled bool   // true to enable this log
	Path    string // path to log file
}

// MainSettings contains main application settings
type MainSettings struct {
	Name string    // name of the monitoring node
	Log  LogConfig // main log configuration
}

// DetectorSettings contains the external vehicle detector capability settings
type DetectorSettings struct {
	Endpoint       string  // HTTP endpoint of the inference service
	Confidence     float64 // minimum confidence passed to the detector
	VehicleClasses []int   // detector class ids treated as vehicles
	MinBoxArea     float64 // minimum raw box area in pixels, rejects distant noise
}

// OccupancySettings contains the geometric assignment and smoothing constants
type OccupancySettings struct {
	StallOverlap       float64 // fraction of stall area that must be covered
	BoxOverlap         float64 // or fraction of vehicle box area
	ShrinkMargin       float64 // pixels each box edge is moved inward
	KeepBottomFraction float64 // lower fraction of the box kept for overlap
	HistoryLength      int     // temporal smoothing buffer capacity
}

// RetentionSettings contains output folder retention settings
type RetentionSettings struct {
	Enabled       bool          // true to enable retention sweeps
	KeepFiles     int           // number of newest files kept per folder
	CheckInterval time.Duration // interval between sweeps
}

// MQTTSettings contains MQTT result publication settings
type MQTTSettings struct {
	Enabled  bool   // true to enable MQTT
	Broker   string // MQTT broker URL
	Topic    string // MQTT topic prefix, lot id is appended
	Username string // MQTT username
	Password string // MQTT password
	Retain   bool   // true to retain messages at the broker
}

// TelemetrySettings contains Prometheus metrics endpoint settings
type TelemetrySettings struct {
	Enabled bool   // true to expose Prometheus metrics
	Listen  string // IP address and port to listen on
}

// RealtimeSettings contains per-lot pipeline timing settings
type RealtimeSettings struct {
	CaptureInterval    time.Duration     // time between frame grabs
	DetectInterval     time.Duration     // sleep after a processed cycle
	PollInterval       time.Duration     // recheck interval when the frame is unchanged
	SettleDelay        time.Duration     // delay between launching capture and detect
	FetchTimeout       time.Duration     // timeout for a single frame fetch
	RetryDelay         time.Duration     // fixed backoff after a failed fetch
	ReconcileInterval  time.Duration     // interval between lot registry reconciliations
	Retention          RetentionSettings // output folder retention
	MQTT               MQTTSettings      // MQTT settings
	Telemetry          TelemetrySettings // Prometheus metrics settings
}

// SQLiteSettings contains the SQLite database settings
type SQLiteSettings struct {
	Path string // path to the SQLite database file
}

// OutputSettings contains filesystem and database output settings
type OutputSettings struct {
	BasePath string         // base directory for per-lot frames/overlays/maps
	SQLite   SQLiteSettings // SQLite database settings
}

// Settings is the root configuration struct
type Settings struct {
	Debug bool // true to enable debug logging

	Main     MainSettings
	Detector DetectorSettings

	Occupancy OccupancySettings
	Realtime  RealtimeSettings
	Output    OutputSettings
}

// settingsInstance is the current settings instance
var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	// Initialize viper and read config
	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	// Unmarshal the config into settings
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	// Validate settings
	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// Set default values for each configuration parameter
	// function defined in defaults.go
	setDefaultConfig()

	// Read configuration file
	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, create config with defaults
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes a config file populated with the defaults to the
// first default config path.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return fmt.Errorf("error unmarshaling defaults: %w", err)
	}

	if err := SaveYAMLConfig(configPath, settings); err != nil {
		return fmt.Errorf("error writing default config: %w", err)
	}

	log.Printf("Created default config file at %s", configPath)
	return viper.ReadInConfig()
}

// Setting returns the current settings instance, initializing it if necessary
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			_, err := Load()
			if err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveYAMLConfig updates the YAML configuration file with new settings.
// It overwrites the existing file, not preserving comments or structure.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	// Write the YAML data to a temporary file first to ensure the
	// replacement of the config file is atomic.
	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempName := tempFile.Name()

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		os.Remove(tempName)
		return fmt.Errorf("error writing temporary config: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("error closing temporary config: %w", err)
	}

	if err := os.Rename(tempName, configPath); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("error replacing config file: %w", err)
	}

	return nil
}
