package observability

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trippieshadow66/Spotection/internal/conf"
)

// Endpoint serves the Prometheus metrics over HTTP.
type Endpoint struct {
	server  *http.Server
	metrics *Metrics
	listen  string
}

// NewEndpoint creates a metrics endpoint bound to the configured listen address.
func NewEndpoint(settings *conf.TelemetrySettings, metrics *Metrics) *Endpoint {
	return &Endpoint{
		metrics: metrics,
		listen:  settings.Listen,
	}
}

// Start launches the metrics HTTP server in a goroutine and arranges a
// graceful shutdown when quitChan is closed.
func (e *Endpoint) Start(wg *sync.WaitGroup, quitChan <-chan struct{}) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.metrics.Registry(), promhttp.HandlerOpts{}))

	e.server = &http.Server{
		Addr:         e.listen,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("Starting metrics endpoint at %s", e.listen)
		if err := e.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Metrics endpoint failed: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-quitChan
		e.gracefulShutdown()
	}()
}

func (e *Endpoint) gracefulShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.server.Shutdown(ctx); err != nil {
		log.Printf("Metrics endpoint shutdown failed: %v", err)
	}
}
