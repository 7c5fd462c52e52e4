package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/trippieshadow66/Spotection/internal/datastore"
	"github.com/trippieshadow66/Spotection/internal/frames"
)

// sleepCtx sleeps for d unless ctx is canceled first. Returns false when the
// context ended the sleep.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// captureLoop grabs frames from the lot's stream source, applies the flip
// transform and publishes each frame to the pipeline slot. It also rewrites
// the lot's latest.jpg so dashboard consumers always have a current frame.
// A failed grab is retried after a fixed delay until the pipeline stops.
func (s *Supervisor) captureLoop(ctx context.Context, p *pipeline, flip bool) {
	rt := &s.settings.Realtime
	for {
		// Reread the lot row so a flip toggle takes effect without a
		// pipeline restart. A transient read error keeps the last value,
		// but a deleted lot tears the pipeline down so the next cycle
		// cannot recreate the purged folders and history.
		lot, err := s.store.GetLot(p.lotID)
		switch {
		case err == nil:
			flip = lot.Flip
		case errors.Is(err, datastore.ErrLotNotFound):
			monitorLogger.Info("lot removed from registry, stopping pipeline", "lot_id", p.lotID)
			go s.Stop(p.lotID)
			return
		}

		frame, err := p.source.Grab(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			monitorLogger.Warn("frame grab failed", "lot_id", p.lotID, "error", err)
			s.metrics.Lot.IncrementCaptureFailures(p.lotID)
			if !sleepCtx(ctx, rt.RetryDelay) {
				return
			}
			continue
		}

		img := frame.Image
		if flip {
			img = frames.Flip180(img)
		}

		jpegData, err := frames.EncodeJPEG(img)
		if err != nil {
			monitorLogger.Warn("frame encode failed", "lot_id", p.lotID, "error", err)
			s.metrics.Lot.IncrementCaptureFailures(p.lotID)
			if !sleepCtx(ctx, rt.RetryDelay) {
				return
			}
			continue
		}

		p.slot.Publish(img, jpegData, frame.Captured)
		if _, err := frames.WriteLatest(s.settings.LotFramesPath(p.lotID), jpegData); err != nil {
			monitorLogger.Warn("writing latest frame", "lot_id", p.lotID, "error", err)
		}

		if !sleepCtx(ctx, rt.CaptureInterval) {
			return
		}
	}
}
