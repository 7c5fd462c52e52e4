// retention.go - bounds per-lot output folder sizes
package diskmanager

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/trippieshadow66/Spotection/internal/conf"
	"github.com/trippieshadow66/Spotection/internal/logging"
)

// allowedFileTypes is the list of file extensions that are allowed to be deleted
var allowedFileTypes = []string{".jpg", ".jpeg"}

// FileInfo holds information about one image file in an output folder
type FileInfo struct {
	Path    string
	ModTime time.Time
	Size    int64
}

var diskLogger *slog.Logger

func init() {
	diskLogger = slog.Default().With("service", "diskmanager")
}

// InitLogger rebinds the package logger to the application's structured
// logger once logging has been initialized.
func InitLogger() {
	if l := logging.ForService("diskmanager"); l != nil {
		diskLogger = l
	}
}

// GetImageFiles returns the image files directly inside dir, sorted by
// modification time ascending. A missing directory yields an empty list.
func GetImageFiles(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !contains(allowedFileTypes, filepath.Ext(entry.Name())) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// File disappeared between listing and stat, skip it.
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(dir, entry.Name()),
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].ModTime.Before(files[j].ModTime) })
	return files, nil
}

// KeepNewest deletes all but the keep most-recently-modified image files in
// dir. Deleting an already-missing file is a no-op, not an error.
func KeepNewest(dir string, keep int) error {
	if keep < 1 {
		keep = 1
	}

	files, err := GetImageFiles(dir)
	if err != nil {
		return err
	}
	if len(files) <= keep {
		return nil
	}

	removed := 0
	for _, file := range files[:len(files)-keep] {
		if err := os.Remove(file.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", file.Path, err)
		}
		removed++
	}
	diskLogger.Debug("pruned output folder", "dir", dir, "removed", removed, "kept", keep)
	return nil
}

// SweepLot applies the retention bound to every output folder of one lot.
func SweepLot(settings *conf.Settings, lotID uint) error {
	keep := settings.Realtime.Retention.KeepFiles
	for _, dir := range []string{
		settings.LotFramesPath(lotID),
		settings.LotOverlaysPath(lotID),
		settings.LotMapsPath(lotID),
	} {
		if err := KeepNewest(dir, keep); err != nil {
			return err
		}
	}
	return nil
}

// contains checks if a string is in a slice
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
