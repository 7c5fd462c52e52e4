package monitor

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/trippieshadow66/Spotection/internal/conf"
	"github.com/trippieshadow66/Spotection/internal/datastore"
	"github.com/trippieshadow66/Spotection/internal/detector"
	"github.com/trippieshadow66/Spotection/internal/diskmanager"
	"github.com/trippieshadow66/Spotection/internal/mqtt"
	"github.com/trippieshadow66/Spotection/internal/observability"
)

// RunMonitor starts the occupancy monitor in realtime mode and blocks until
// a termination signal arrives.
func RunMonitor(settings *conf.Settings) error {
	// Get system details with gopsutil
	info, err := host.Info()
	if err != nil {
		fmt.Printf("❌ Error retrieving host info: %v\n", err)
	} else {
		fmt.Printf("System details: %s %s %s\n", info.OS, info.Platform, info.PlatformVersion)
	}

	fmt.Printf("Starting monitor in realtime mode. Detector: %s, confidence: %v, capture interval: %v\n",
		settings.Detector.Endpoint,
		settings.Detector.Confidence,
		settings.Realtime.CaptureInterval)

	// Initialize database access.
	store := datastore.New(settings)
	if err := store.Open(); err != nil {
		return err
	}
	defer closeDataStore(store)

	// Initialize Prometheus metrics manager
	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("error initializing metrics: %w", err)
	}

	// Connect to the MQTT broker if result publication is enabled. A broker
	// that is down at startup is not fatal; the client reconnects later.
	var mqttClient mqtt.Client
	if settings.Realtime.MQTT.Enabled {
		mqttClient = mqtt.NewClient(settings)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := mqttClient.Connect(ctx); err != nil {
			log.Printf("⚠️  Failed to connect to MQTT broker: %v", err)
		}
		cancel()
	}

	det := detector.NewHTTPDetector(
		settings.Detector.Endpoint,
		settings.Detector.Confidence,
		settings.Realtime.FetchTimeout,
	)

	supervisor := NewSupervisor(settings, store, det, metrics, mqttClient)

	// quitChan is used to signal the goroutines to stop.
	quitChan := make(chan struct{})
	var wg sync.WaitGroup

	// start telemetry endpoint
	startTelemetryEndpoint(&wg, settings, metrics, quitChan)

	// start retention sweeps of output folders
	startRetentionMonitor(&wg, settings, store, quitChan)

	// start registry reconciliation so lot add/remove applies at runtime
	startRegistrySync(&wg, settings, supervisor, quitChan)

	// start all lot pipelines; individual failures are logged and skipped
	// so the healthy lots keep running
	if err := supervisor.StartAll(); err != nil {
		log.Printf("⚠️  Some lots failed to start: %v", err)
	}

	// start quit signal monitor
	monitorCtrlC(quitChan)

	<-quitChan
	supervisor.StopAll()
	wg.Wait()
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	return nil
}

func startTelemetryEndpoint(wg *sync.WaitGroup, settings *conf.Settings, metrics *observability.Metrics, quitChan chan struct{}) {
	if settings.Realtime.Telemetry.Enabled {
		endpoint := observability.NewEndpoint(&settings.Realtime.Telemetry, metrics)
		endpoint.Start(wg, quitChan)
	}
}

// startRegistrySync periodically reconciles the running pipelines against
// the lot registry, picking up lots added or removed by the admin CLI while
// the monitor runs.
func startRegistrySync(wg *sync.WaitGroup, settings *conf.Settings, supervisor *Supervisor, quitChan chan struct{}) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(settings.Realtime.ReconcileInterval)
		defer ticker.Stop()
		for {
			select {
			case <-quitChan:
				return
			case <-ticker.C:
				if err := supervisor.Reconcile(); err != nil {
					log.Printf("⚠️  Lot registry reconciliation: %v", err)
				}
			}
		}
	}()
}

// startRetentionMonitor periodically prunes each lot's output folders down
// to the configured number of newest files.
func startRetentionMonitor(wg *sync.WaitGroup, settings *conf.Settings, store datastore.Interface, quitChan chan struct{}) {
	if !settings.Realtime.Retention.Enabled {
		return
	}
	diskmanager.InitLogger()
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(settings.Realtime.Retention.CheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-quitChan:
				return
			case <-ticker.C:
				lots, err := store.GetAllLots()
				if err != nil {
					log.Printf("⚠️  Retention sweep failed to list lots: %v", err)
					continue
				}
				for i := range lots {
					if err := diskmanager.SweepLot(settings, lots[i].ID); err != nil {
						log.Printf("⚠️  Retention sweep failed for lot %d: %v", lots[i].ID, err)
					}
				}
			}
		}
	}()
}

// monitorCtrlC listens for SIGINT and SIGTERM and triggers shutdown.
func monitorCtrlC(quitChan chan struct{}) {
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

		<-sigChan

		log.Println("Received termination signal, shutting down")
		close(quitChan)
	}()
}

func closeDataStore(store datastore.Interface) {
	if err := store.Close(); err != nil {
		log.Printf("Failed to close database: %v", err)
	} else {
		log.Println("Successfully closed database")
	}
}
