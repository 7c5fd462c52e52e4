package monitor

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trippieshadow66/Spotection/internal/conf"
	"github.com/trippieshadow66/Spotection/internal/datastore"
	"github.com/trippieshadow66/Spotection/internal/detector"
	"github.com/trippieshadow66/Spotection/internal/geometry"
	"github.com/trippieshadow66/Spotection/internal/observability"
	"github.com/trippieshadow66/Spotection/internal/stallmap"
)

// fakeDetector returns a fixed set of boxes for every frame.
type fakeDetector struct {
	boxes []detector.Box
}

func (d *fakeDetector) Detect(_ context.Context, _ []byte) ([]detector.Box, error) {
	return d.boxes, nil
}

func testSettings(t *testing.T) *conf.Settings {
	t.Helper()
	base := t.TempDir()
	return &conf.Settings{
		Detector: conf.DetectorSettings{
			Confidence:     0.2,
			VehicleClasses: []int{2, 3, 5, 7},
			MinBoxArea:     800,
		},
		Occupancy: conf.OccupancySettings{
			StallOverlap:       0.25,
			BoxOverlap:         0.25,
			ShrinkMargin:       10,
			KeepBottomFraction: 0.6,
			HistoryLength:      3,
		},
		Realtime: conf.RealtimeSettings{
			CaptureInterval:   50 * time.Millisecond,
			DetectInterval:    50 * time.Millisecond,
			PollInterval:      20 * time.Millisecond,
			SettleDelay:       10 * time.Millisecond,
			FetchTimeout:      2 * time.Second,
			RetryDelay:        50 * time.Millisecond,
			ReconcileInterval: time.Second,
		},
		Output: conf.OutputSettings{
			BasePath: base,
			SQLite:   conf.SQLiteSettings{Path: filepath.Join(base, "spotection.db")},
		},
	}
}

func openTestStore(t *testing.T, settings *conf.Settings) datastore.Interface {
	t.Helper()
	store := datastore.New(settings)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// snapshotServer serves a fixed JPEG on every request, imitating a camera
// snapshot endpoint. The frame is dark with a white block in the top-left
// corner so a 180 degree flip is observable in the output.
func snapshotServer(t *testing.T) *httptest.Server {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			c := color.RGBA{R: 40, G: 40, B: 40, A: 255}
			if x < 20 && y < 20 {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	data := buf.Bytes()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestSupervisor(t *testing.T, settings *conf.Settings, store datastore.Interface, det detector.Detector) *Supervisor {
	t.Helper()
	metrics, err := observability.NewMetrics()
	require.NoError(t, err)
	return NewSupervisor(settings, store, det, metrics, nil)
}

func TestStartStopIdempotent(t *testing.T) {
	settings := testSettings(t)
	store := openTestStore(t, settings)
	srv := snapshotServer(t)

	lot := &datastore.Lot{Name: "North Lot", StreamURL: srv.URL + "/cam.jpg"}
	require.NoError(t, store.CreateLot(lot))

	sup := newTestSupervisor(t, settings, store, &fakeDetector{})

	require.NoError(t, sup.Start(lot.ID))
	assert.True(t, sup.Running(lot.ID))

	// A second start for a running lot is a no-op, not a second pipeline.
	require.NoError(t, sup.Start(lot.ID))
	assert.True(t, sup.Running(lot.ID))

	sup.Stop(lot.ID)
	assert.False(t, sup.Running(lot.ID))

	// Stopping a stopped lot is a no-op.
	sup.Stop(lot.ID)
	assert.False(t, sup.Running(lot.ID))
}

func TestStartUnknownLot(t *testing.T) {
	settings := testSettings(t)
	store := openTestStore(t, settings)

	sup := newTestSupervisor(t, settings, store, &fakeDetector{})

	err := sup.Start(42)
	require.Error(t, err)
	assert.ErrorIs(t, err, datastore.ErrLotNotFound)
	assert.False(t, sup.Running(42))
}

func TestStartBadStreamSource(t *testing.T) {
	settings := testSettings(t)
	store := openTestStore(t, settings)

	lot := &datastore.Lot{Name: "Broken", StreamURL: "ftp://camera.local/stream"}
	require.NoError(t, store.CreateLot(lot))

	sup := newTestSupervisor(t, settings, store, &fakeDetector{})

	require.Error(t, sup.Start(lot.ID))
	assert.False(t, sup.Running(lot.ID))
}

func TestStartAllIsolatesFailures(t *testing.T) {
	settings := testSettings(t)
	store := openTestStore(t, settings)
	srv := snapshotServer(t)

	good := &datastore.Lot{Name: "Good", StreamURL: srv.URL + "/cam.jpg"}
	require.NoError(t, store.CreateLot(good))
	bad := &datastore.Lot{Name: "Bad", StreamURL: "ftp://nowhere/stream"}
	require.NoError(t, store.CreateLot(bad))

	sup := newTestSupervisor(t, settings, store, &fakeDetector{})
	defer sup.StopAll()

	// The bad lot's failure is reported but does not stop the good lot.
	require.Error(t, sup.StartAll())
	assert.True(t, sup.Running(good.ID))
	assert.False(t, sup.Running(bad.ID))
}

func TestReconcileStopsRemovedLotsAndStartsNew(t *testing.T) {
	settings := testSettings(t)
	store := openTestStore(t, settings)
	srv := snapshotServer(t)

	first := &datastore.Lot{Name: "First", StreamURL: srv.URL + "/cam.jpg"}
	require.NoError(t, store.CreateLot(first))

	sup := newTestSupervisor(t, settings, store, &fakeDetector{})
	defer sup.StopAll()

	require.NoError(t, sup.StartAll())
	require.True(t, sup.Running(first.ID))

	// A lot registered while the monitor runs is picked up.
	second := &datastore.Lot{Name: "Second", StreamURL: srv.URL + "/cam.jpg"}
	require.NoError(t, store.CreateLot(second))
	require.NoError(t, sup.Reconcile())
	assert.True(t, sup.Running(second.ID))

	// A removed lot's pipeline is torn down; its purged folders and
	// history must stay gone afterwards.
	require.NoError(t, store.DeleteLot(first.ID))
	require.NoError(t, sup.Reconcile())
	assert.False(t, sup.Running(first.ID))
	assert.True(t, sup.Running(second.ID))

	require.NoError(t, os.RemoveAll(settings.LotBasePath(first.ID)))
	time.Sleep(200 * time.Millisecond)
	assert.NoDirExists(t, settings.LotBasePath(first.ID))
	_, err := store.LatestDetection(first.ID)
	assert.ErrorIs(t, err, datastore.ErrNoDetections)
}

func TestCaptureStopsPipelineWhenLotDeleted(t *testing.T) {
	settings := testSettings(t)
	store := openTestStore(t, settings)
	srv := snapshotServer(t)

	lot := &datastore.Lot{Name: "Ephemeral", StreamURL: srv.URL + "/cam.jpg"}
	require.NoError(t, store.CreateLot(lot))

	sup := newTestSupervisor(t, settings, store, &fakeDetector{})
	defer sup.StopAll()

	require.NoError(t, sup.Start(lot.ID))
	require.NoError(t, store.DeleteLot(lot.ID))

	// The capture loop notices the missing registry row on its next
	// cycle and tears the pipeline down without waiting for a reconcile.
	deadline := time.Now().Add(10 * time.Second)
	for sup.Running(lot.ID) {
		if time.Now().After(deadline) {
			t.Fatal("pipeline still running after lot deletion")
		}
		time.Sleep(50 * time.Millisecond)
	}

	require.NoError(t, os.RemoveAll(settings.LotBasePath(lot.ID)))
	time.Sleep(200 * time.Millisecond)
	assert.NoDirExists(t, settings.LotBasePath(lot.ID))
}

// latestFrameCorners decodes the lot's latest.jpg and reports whether the
// top-left and bottom-right corners are bright.
func latestFrameCorners(t *testing.T, settings *conf.Settings, lotID uint) (topLeftBright, bottomRightBright, ok bool) {
	t.Helper()
	f, err := os.Open(filepath.Join(settings.LotFramesPath(lotID), "latest.jpg"))
	if err != nil {
		return false, false, false
	}
	defer f.Close()
	img, err := jpeg.Decode(f)
	if err != nil {
		return false, false, false
	}
	bright := func(x, y int) bool {
		r, _, _, _ := img.At(x, y).RGBA()
		return r>>8 > 150
	}
	return bright(10, 10), bright(190, 190), true
}

func TestUpdatedFlipAppliesWithoutRestart(t *testing.T) {
	settings := testSettings(t)
	store := openTestStore(t, settings)
	srv := snapshotServer(t)

	lot := &datastore.Lot{Name: "South Lot", StreamURL: srv.URL + "/cam.jpg"}
	require.NoError(t, store.CreateLot(lot))

	sup := newTestSupervisor(t, settings, store, &fakeDetector{})
	defer sup.StopAll()
	require.NoError(t, sup.Start(lot.ID))

	waitForCorners := func(wantTopLeft, wantBottomRight bool) {
		t.Helper()
		deadline := time.Now().Add(10 * time.Second)
		for {
			topLeft, bottomRight, ok := latestFrameCorners(t, settings, lot.ID)
			if ok && topLeft == wantTopLeft && bottomRight == wantBottomRight {
				return
			}
			if time.Now().After(deadline) {
				t.Fatalf("latest frame never reached topLeft=%v bottomRight=%v", wantTopLeft, wantBottomRight)
			}
			time.Sleep(50 * time.Millisecond)
		}
	}

	// Unflipped: the camera's white marker sits top-left.
	waitForCorners(true, false)

	// Toggling flip on the registry row takes effect on a later capture
	// cycle, no pipeline restart involved.
	row, err := store.GetLot(lot.ID)
	require.NoError(t, err)
	row.Flip = true
	require.NoError(t, store.UpdateLot(&row))

	waitForCorners(false, true)
}

func TestPipelinePersistsDetections(t *testing.T) {
	settings := testSettings(t)
	store := openTestStore(t, settings)
	srv := snapshotServer(t)

	lot := &datastore.Lot{Name: "East Lot", StreamURL: srv.URL + "/cam.jpg"}
	require.NoError(t, store.CreateLot(lot))

	// One stall and one box whose normalized footprint centers inside it.
	stalls := &stallmap.Config{Stalls: []stallmap.Stall{
		{ID: 1, Lane: 1, Points: geometry.Polygon{
			{X: 0, Y: 100}, {X: 100, Y: 100}, {X: 100, Y: 200}, {X: 0, Y: 200},
		}},
	}}
	sup := newTestSupervisor(t, settings, store, &fakeDetector{boxes: []detector.Box{
		{Rect: geometry.Rect{X1: 20, Y1: 100, X2: 90, Y2: 190}, ClassID: 2, Confidence: 0.9},
	}})

	// Start creates the lot folders; write the stall configuration before
	// the first detect cycle can run.
	require.NoError(t, sup.prepareLotFolders(lot.ID))
	require.NoError(t, stallmap.Save(settings.LotStallConfigPath(lot.ID), stalls))

	require.NoError(t, sup.Start(lot.ID))
	defer sup.StopAll()

	deadline := time.Now().Add(10 * time.Second)
	var row datastore.DetectionResult
	for {
		var err error
		row, err = store.LatestDetection(lot.ID)
		if err == nil {
			break
		}
		require.ErrorIs(t, err, datastore.ErrNoDetections)
		if time.Now().After(deadline) {
			t.Fatal("no detection result persisted before deadline")
		}
		time.Sleep(50 * time.Millisecond)
	}

	assert.Equal(t, lot.ID, row.LotID)
	assert.Equal(t, 1, row.OccupiedCount)
	assert.Equal(t, 0, row.FreeCount)
	assert.FileExists(t, row.FramePath)
	assert.FileExists(t, row.OverlayPath)
	assert.FileExists(t, row.MapPath)

	status, err := row.DecodeStallStatus()
	require.NoError(t, err)
	assert.True(t, status[1])
}
