// mqtt.go: Package mqtt provides an abstraction for MQTT client functionality.
// Each completed detection cycle can be published as a JSON record so
// external consumers see per-lot occupancy without polling the database.
package mqtt

import (
	"context"
	"log/slog"
	"time"

	"github.com/trippieshadow66/Spotection/internal/logging"
)

// Client defines the interface for MQTT client operations.
type Client interface {
	// Connect attempts to connect to the MQTT broker.
	// It returns an error if the connection fails.
	Connect(ctx context.Context) error

	// Publish sends a message to the specified topic on the MQTT broker.
	// It returns an error if the publish operation fails.
	Publish(ctx context.Context, topic string, payload string) error

	// IsConnected returns true if the client is currently connected to the MQTT broker.
	IsConnected() bool

	// Disconnect closes the connection to the MQTT broker.
	Disconnect()
}

// Config holds the configuration for the MQTT client.
type Config struct {
	Broker            string
	ClientID          string
	Username          string
	Password          string
	Topic             string // Topic prefix for publishing records, lot id is appended
	Retain            bool   // true to retain messages at the broker
	ReconnectCooldown time.Duration
	// Connection timeouts
	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
}

// Package-level logger for MQTT related events
var mqttLogger *slog.Logger

func init() {
	var err error
	mqttLogger, _, err = logging.NewFileLogger("logs/mqtt.log", "mqtt", slog.LevelInfo)
	if err != nil {
		// Fallback to the default structured logger
		mqttLogger = slog.Default().With("service", "mqtt")
		mqttLogger.Warn("MQTT service falling back to default logger", "error", err)
	}
}

// DefaultConfig returns a Config with reasonable default values
func DefaultConfig() Config {
	return Config{
		ReconnectCooldown: 5 * time.Second,
		ConnectTimeout:    30 * time.Second,
		PublishTimeout:    10 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}
