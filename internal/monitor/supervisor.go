// Package monitor runs the per-lot capture and detection pipelines and the
// supervisor that owns their lifecycle.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/trippieshadow66/Spotection/internal/conf"
	"github.com/trippieshadow66/Spotection/internal/datastore"
	"github.com/trippieshadow66/Spotection/internal/detector"
	"github.com/trippieshadow66/Spotection/internal/frames"
	"github.com/trippieshadow66/Spotection/internal/logging"
	"github.com/trippieshadow66/Spotection/internal/mqtt"
	"github.com/trippieshadow66/Spotection/internal/observability"
	"github.com/trippieshadow66/Spotection/internal/stallmap"
)

var monitorLogger *slog.Logger

func init() {
	monitorLogger = logging.ForService("monitor")
	if monitorLogger == nil {
		monitorLogger = slog.Default().With("service", "monitor")
	}
}

// pipeline is one running lot: a capture goroutine feeding a frame slot and
// a detect goroutine draining it. Smoothing state lives inside the detect
// goroutine, so stopping and restarting a lot starts from a clean history.
type pipeline struct {
	lotID  uint
	cancel context.CancelFunc
	wg     sync.WaitGroup
	slot   *frames.Slot
	source frames.Source
}

// Supervisor owns all lot pipelines. Start and Stop are idempotent; a second
// Start for a running lot is a no-op rather than a second pipeline.
type Supervisor struct {
	settings   *conf.Settings
	store      datastore.Interface
	det        detector.Detector
	metrics    *observability.Metrics
	mqttClient mqtt.Client

	mu        sync.Mutex
	pipelines map[uint]*pipeline
}

// NewSupervisor creates a supervisor with no running pipelines. The MQTT
// client may be nil when result publication is disabled.
func NewSupervisor(settings *conf.Settings, store datastore.Interface, det detector.Detector, metrics *observability.Metrics, mqttClient mqtt.Client) *Supervisor {
	return &Supervisor{
		settings:   settings,
		store:      store,
		det:        det,
		metrics:    metrics,
		mqttClient: mqttClient,
		pipelines:  make(map[uint]*pipeline),
	}
}

// Start launches the capture and detect goroutines for one lot. The stream
// source is opened synchronously so a broken camera URL fails here instead
// of spinning inside the pipeline. Starting an already running lot is a
// no-op.
func (s *Supervisor) Start(lotID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, running := s.pipelines[lotID]; running {
		monitorLogger.Debug("lot already running", "lot_id", lotID)
		return nil
	}

	lot, err := s.store.GetLot(lotID)
	if err != nil {
		return fmt.Errorf("lot %d: %w", lotID, err)
	}

	source, err := frames.NewSource(lot.StreamURL, s.settings.Realtime.FetchTimeout)
	if err != nil {
		return fmt.Errorf("lot %d: opening stream source: %w", lotID, err)
	}

	if err := s.prepareLotFolders(lotID); err != nil {
		_ = source.Close()
		return fmt.Errorf("lot %d: %w", lotID, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &pipeline{
		lotID:  lotID,
		cancel: cancel,
		slot:   frames.NewSlot(),
		source: source,
	}

	p.wg.Add(2)
	go func() {
		defer p.wg.Done()
		s.captureLoop(ctx, p, lot.Flip)
	}()
	go func() {
		defer p.wg.Done()
		// Let the capture side publish a first frame before polling starts.
		if !sleepCtx(ctx, s.settings.Realtime.SettleDelay) {
			return
		}
		s.detectLoop(ctx, p)
	}()

	s.pipelines[lotID] = p
	monitorLogger.Info("lot pipeline started", "lot_id", lotID, "name", lot.Name, "stream", lot.StreamURL)
	return nil
}

// Stop cancels one lot's pipeline and waits for both goroutines to exit.
// Stopping a lot that is not running is a no-op.
func (s *Supervisor) Stop(lotID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(lotID)
}

func (s *Supervisor) stopLocked(lotID uint) {
	p, running := s.pipelines[lotID]
	if !running {
		return
	}
	p.cancel()
	if err := p.source.Close(); err != nil {
		monitorLogger.Warn("closing stream source", "lot_id", lotID, "error", err)
	}
	p.wg.Wait()
	delete(s.pipelines, lotID)
	monitorLogger.Info("lot pipeline stopped", "lot_id", lotID)
}

// StopAll stops every running pipeline.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for lotID := range s.pipelines {
		s.stopLocked(lotID)
	}
}

// Running reports whether a pipeline exists for the lot.
func (s *Supervisor) Running(lotID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, running := s.pipelines[lotID]
	return running
}

// StartAll starts a pipeline for every lot in the database. A lot that fails
// to start is logged and skipped so one broken camera cannot keep the other
// lots down; the per-lot failures are returned joined.
func (s *Supervisor) StartAll() error {
	lots, err := s.store.GetAllLots()
	if err != nil {
		return fmt.Errorf("listing lots: %w", err)
	}
	var startErrs []error
	for i := range lots {
		if err := s.Start(lots[i].ID); err != nil {
			monitorLogger.Error("failed to start lot", "lot_id", lots[i].ID, "error", err)
			startErrs = append(startErrs, err)
		}
	}
	return errors.Join(startErrs...)
}

// Reconcile aligns the running pipelines with the lot registry: pipelines
// whose lot row is gone are stopped, registered lots without a pipeline are
// started. Called periodically so lots added or removed while the monitor
// runs take effect without a restart, and so a lot that failed to start
// gets retried.
func (s *Supervisor) Reconcile() error {
	lots, err := s.store.GetAllLots()
	if err != nil {
		return fmt.Errorf("listing lots: %w", err)
	}
	registered := make(map[uint]bool, len(lots))
	for i := range lots {
		registered[lots[i].ID] = true
	}

	s.mu.Lock()
	var removed []uint
	for lotID := range s.pipelines {
		if !registered[lotID] {
			removed = append(removed, lotID)
		}
	}
	for _, lotID := range removed {
		monitorLogger.Info("lot removed from registry, stopping pipeline", "lot_id", lotID)
		s.stopLocked(lotID)
	}
	s.mu.Unlock()

	var startErrs []error
	for i := range lots {
		if err := s.Start(lots[i].ID); err != nil {
			monitorLogger.Error("failed to start lot", "lot_id", lots[i].ID, "error", err)
			startErrs = append(startErrs, err)
		}
	}
	return errors.Join(startErrs...)
}

// prepareLotFolders creates the lot's output folders and an empty stall
// configuration file when none exists yet.
func (s *Supervisor) prepareLotFolders(lotID uint) error {
	dirs := []string{
		s.settings.LotFramesPath(lotID),
		s.settings.LotOverlaysPath(lotID),
		s.settings.LotMapsPath(lotID),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output folder: %w", err)
		}
	}
	if err := stallmap.EnsureExists(s.settings.LotStallConfigPath(lotID)); err != nil {
		return fmt.Errorf("creating stall configuration: %w", err)
	}
	return nil
}
