// Package stallmap loads and saves the per-lot stall polygon document
// written wholesale by the external polygon editing tool.
package stallmap

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/trippieshadow66/Spotection/internal/geometry"
)

// Stall is one parking space: a polygon in image coordinates plus the lane
// grouping used for schematic layout.
type Stall struct {
	ID     int
	Lane   int
	Points geometry.Polygon
}

// Config is the ordered set of stalls for one lot, sorted ascending by
// stall id. The ascending order is the documented tie-break for greedy
// box assignment.
type Config struct {
	Stalls []Stall
}

// document mirrors the on-disk JSON structure:
// {"stalls": [{"id": 1, "lane": 1, "points": [[x, y], ...]}]}
type document struct {
	Stalls []stallDoc `json:"stalls"`
}

type stallDoc struct {
	ID     int          `json:"id"`
	Lane   int          `json:"lane"`
	Points [][2]float64 `json:"points"`
}

// Load reads the stall configuration for a lot. A missing file yields an
// empty config, the lot simply has no stalls defined yet.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading stall config %s: %w", path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing stall config %s: %w", path, err)
	}

	cfg := &Config{Stalls: make([]Stall, 0, len(doc.Stalls))}
	seen := make(map[int]bool, len(doc.Stalls))
	for _, s := range doc.Stalls {
		if seen[s.ID] {
			return nil, fmt.Errorf("stall config %s: duplicate stall id %d", path, s.ID)
		}
		seen[s.ID] = true

		if len(s.Points) < 3 {
			return nil, fmt.Errorf("stall config %s: stall %d has %d points, need at least 3", path, s.ID, len(s.Points))
		}
		poly := make(geometry.Polygon, len(s.Points))
		for i, p := range s.Points {
			poly[i] = geometry.Point{X: p[0], Y: p[1]}
		}
		if poly.Area() <= 0 {
			return nil, fmt.Errorf("stall config %s: stall %d polygon encloses no area", path, s.ID)
		}
		cfg.Stalls = append(cfg.Stalls, Stall{ID: s.ID, Lane: s.Lane, Points: poly})
	}

	sort.Slice(cfg.Stalls, func(i, j int) bool { return cfg.Stalls[i].ID < cfg.Stalls[j].ID })
	return cfg, nil
}

// Save writes the whole stall configuration atomically, temp file + rename.
// Partial patches are not supported, the editing tool always replaces the
// document wholesale.
func Save(path string, cfg *Config) error {
	doc := document{Stalls: make([]stallDoc, 0, len(cfg.Stalls))}
	for _, s := range cfg.Stalls {
		points := make([][2]float64, len(s.Points))
		for i, p := range s.Points {
			points[i] = [2]float64{p.X, p.Y}
		}
		doc.Stalls = append(doc.Stalls, stallDoc{ID: s.ID, Lane: s.Lane, Points: points})
	}

	data, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling stall config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating stall config directory: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), "lot_config-*.json")
	if err != nil {
		return fmt.Errorf("creating temporary stall config: %w", err)
	}
	tempName := tempFile.Name()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		os.Remove(tempName)
		return fmt.Errorf("writing temporary stall config: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("closing temporary stall config: %w", err)
	}

	if err := os.Rename(tempName, path); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("replacing stall config: %w", err)
	}
	return nil
}

// EnsureExists writes an empty stall document if none exists yet, so a
// freshly created lot starts in a valid zero-stall state.
func EnsureExists(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("checking stall config %s: %w", path, err)
	}
	return Save(path, &Config{})
}
