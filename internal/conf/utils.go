// utils.go: path helpers shared by the configuration layer
package conf

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
)

// GetDefaultConfigPaths returns the default configuration file search paths
// for the current operating system. The first returned path is used when a
// new default config has to be created.
func GetDefaultConfigPaths() ([]string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("error fetching executable path: %w", err)
	}
	exeDir := filepath.Dir(exePath)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error fetching user home directory: %w", err)
	}

	var configPaths []string
	switch runtime.GOOS {
	case "windows":
		configPaths = []string{
			filepath.Join(homeDir, "AppData", "Roaming", "spotection"),
			exeDir,
		}
	default:
		configPaths = []string{
			filepath.Join(homeDir, ".config", "spotection"),
			"/etc/spotection",
			exeDir,
			".",
		}
	}

	return configPaths, nil
}

// GetBasePath expands and normalizes path, creating the directory when it
// does not exist yet.
func GetBasePath(path string) string {
	expandedPath := os.ExpandEnv(path)
	basePath := filepath.Clean(expandedPath)

	if _, err := os.Stat(basePath); os.IsNotExist(err) {
		if err := os.MkdirAll(basePath, 0o755); err != nil {
			log.Printf("failed to create directory '%s': %v", basePath, err)
		}
	}

	return basePath
}

// LotBasePath returns the per-lot data directory under the output base path.
func (s *Settings) LotBasePath(lotID uint) string {
	return filepath.Join(s.Output.BasePath, fmt.Sprintf("lot%d", lotID))
}

// LotFramesPath returns the lot's latest-frame directory.
func (s *Settings) LotFramesPath(lotID uint) string {
	return filepath.Join(s.LotBasePath(lotID), "frames")
}

// LotOverlaysPath returns the lot's timestamped overlay directory.
func (s *Settings) LotOverlaysPath(lotID uint) string {
	return filepath.Join(s.LotBasePath(lotID), "overlays")
}

// LotMapsPath returns the lot's timestamped schematic map directory.
func (s *Settings) LotMapsPath(lotID uint) string {
	return filepath.Join(s.LotBasePath(lotID), "maps")
}

// LotStallConfigPath returns the lot's stall polygon document path.
func (s *Settings) LotStallConfigPath(lotID uint) string {
	return filepath.Join(s.LotBasePath(lotID), "lot_config.json")
}
