package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"time"

	"github.com/trippieshadow66/Spotection/internal/datastore"
	"github.com/trippieshadow66/Spotection/internal/occupancy"
	"github.com/trippieshadow66/Spotection/internal/render"
	"github.com/trippieshadow66/Spotection/internal/stallmap"
)

// lotStatusMessage is the MQTT payload published after each cycle.
type lotStatusMessage struct {
	LotID     uint         `json:"lot_id"`
	Timestamp time.Time    `json:"timestamp"`
	Occupied  int          `json:"occupied"`
	Free      int          `json:"free"`
	Stalls    map[int]bool `json:"stalls"`
}

// detectLoop polls the pipeline slot and runs one detection cycle per new
// frame. After a processed frame it sleeps the detect interval; when the
// slot has nothing new it rechecks at the shorter poll interval. Every
// per-cycle error is absorbed so a flaky detector or disk cannot kill the
// pipeline.
func (s *Supervisor) detectLoop(ctx context.Context, p *pipeline) {
	rt := &s.settings.Realtime
	engine := occupancy.NewEngine(&s.settings.Detector, &s.settings.Occupancy)
	smoother := occupancy.NewSmoother(s.settings.Occupancy.HistoryLength)

	var lastSeq uint64
	for {
		if ctx.Err() != nil {
			return
		}
		img, jpegData, seq, ok := p.slot.Latest(lastSeq)
		if !ok {
			if !sleepCtx(ctx, rt.PollInterval) {
				return
			}
			continue
		}
		lastSeq = seq

		start := time.Now()
		if err := s.runCycle(ctx, p.lotID, engine, smoother, img, jpegData); err != nil {
			monitorLogger.Error("detection cycle failed", "lot_id", p.lotID, "error", err)
			s.metrics.Lot.IncrementDetectErrors(p.lotID)
		} else {
			s.metrics.Lot.IncrementCyclesProcessed(p.lotID)
			s.metrics.Lot.ObserveCycleDuration(p.lotID, time.Since(start).Seconds())
		}

		if !sleepCtx(ctx, rt.DetectInterval) {
			return
		}
	}
}

// runCycle is one full frame-to-row pass: detect vehicles, assign them to
// stalls, smooth, render the overlay and schematic, persist the result and
// publish it.
func (s *Supervisor) runCycle(ctx context.Context, lotID uint, engine *occupancy.Engine, smoother *occupancy.Smoother, img image.Image, jpegData []byte) error {
	stallCfg, err := stallmap.Load(s.settings.LotStallConfigPath(lotID))
	if err != nil {
		return fmt.Errorf("loading stall configuration: %w", err)
	}

	boxes, err := s.det.Detect(ctx, jpegData)
	if err != nil {
		return fmt.Errorf("detecting vehicles: %w", err)
	}

	result := engine.Assign(stallCfg.Stalls, boxes)
	smoothed := smoother.Smooth(result.Raw)

	occupied := 0
	for _, occ := range smoothed {
		if occ {
			occupied++
		}
	}
	free := len(stallCfg.Stalls) - occupied

	framePath, err := render.WriteTimestamped(s.settings.LotFramesPath(lotID), "frame", img)
	if err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}

	overlay := render.Overlay(img, stallCfg.Stalls, smoothed, result)
	overlayPath, err := render.WriteTimestamped(s.settings.LotOverlaysPath(lotID), "overlay", overlay)
	if err != nil {
		return fmt.Errorf("writing overlay: %w", err)
	}

	schematic := render.Schematic(stallCfg.Stalls, smoothed)
	mapPath, err := render.WriteTimestamped(s.settings.LotMapsPath(lotID), "map", schematic)
	if err != nil {
		return fmt.Errorf("writing schematic: %w", err)
	}

	status, err := datastore.EncodeStallStatus(smoothed)
	if err != nil {
		return fmt.Errorf("encoding stall status: %w", err)
	}

	row := &datastore.DetectionResult{
		LotID:         lotID,
		FramePath:     framePath,
		OverlayPath:   overlayPath,
		MapPath:       mapPath,
		Timestamp:     result.Timestamp,
		OccupiedCount: occupied,
		FreeCount:     free,
		StallStatus:   status,
	}
	if err := s.store.SaveDetection(row); err != nil {
		return fmt.Errorf("saving detection result: %w", err)
	}

	s.metrics.Lot.UpdateStallCounts(lotID, occupied, free)
	s.publishStatus(ctx, lotID, result.Timestamp, occupied, free, smoothed)
	return nil
}

// publishStatus sends the cycle result over MQTT when publication is
// enabled. A publish failure is logged, never propagated.
func (s *Supervisor) publishStatus(ctx context.Context, lotID uint, ts time.Time, occupied, free int, smoothed map[int]bool) {
	if s.mqttClient == nil || !s.settings.Realtime.MQTT.Enabled {
		return
	}
	msg := lotStatusMessage{
		LotID:     lotID,
		Timestamp: ts,
		Occupied:  occupied,
		Free:      free,
		Stalls:    smoothed,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		monitorLogger.Error("encoding status message", "lot_id", lotID, "error", err)
		return
	}
	topic := fmt.Sprintf("%s/%d", s.settings.Realtime.MQTT.Topic, lotID)
	if err := s.mqttClient.Publish(ctx, topic, string(payload)); err != nil {
		monitorLogger.Warn("publishing status message", "lot_id", lotID, "topic", topic, "error", err)
	}
}
