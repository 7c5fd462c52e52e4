// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "Spotection")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/spotection.log")

	viper.SetDefault("detector.endpoint", "http://localhost:8500/detect")
	viper.SetDefault("detector.confidence", 0.2)
	// COCO class ids: car, motorcycle, bus, truck
	viper.SetDefault("detector.vehicleclasses", []int{2, 3, 5, 7})
	viper.SetDefault("detector.minboxarea", 800.0)

	viper.SetDefault("occupancy.stalloverlap", 0.25)
	viper.SetDefault("occupancy.boxoverlap", 0.25)
	viper.SetDefault("occupancy.shrinkmargin", 10.0)
	viper.SetDefault("occupancy.keepbottomfraction", 0.6)
	viper.SetDefault("occupancy.historylength", 3)

	viper.SetDefault("realtime.captureinterval", 2*time.Second)
	viper.SetDefault("realtime.detectinterval", 2*time.Second)
	viper.SetDefault("realtime.pollinterval", 500*time.Millisecond)
	viper.SetDefault("realtime.settledelay", 1*time.Second)
	viper.SetDefault("realtime.fetchtimeout", 10*time.Second)
	viper.SetDefault("realtime.retrydelay", 2*time.Second)
	viper.SetDefault("realtime.reconcileinterval", 30*time.Second)

	viper.SetDefault("realtime.retention.enabled", true)
	viper.SetDefault("realtime.retention.keepfiles", 5)
	viper.SetDefault("realtime.retention.checkinterval", time.Minute)

	viper.SetDefault("realtime.mqtt.enabled", false)
	viper.SetDefault("realtime.mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("realtime.mqtt.topic", "spotection/lot")
	viper.SetDefault("realtime.mqtt.username", "")
	viper.SetDefault("realtime.mqtt.password", "")
	viper.SetDefault("realtime.mqtt.retain", false)

	viper.SetDefault("realtime.telemetry.enabled", false)
	viper.SetDefault("realtime.telemetry.listen", "0.0.0.0:8090")

	viper.SetDefault("output.basepath", "data/")
	viper.SetDefault("output.sqlite.path", "data/spotection.db")
}
