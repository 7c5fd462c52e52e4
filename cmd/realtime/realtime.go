package realtime

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/trippieshadow66/Spotection/internal/conf"
	"github.com/trippieshadow66/Spotection/internal/monitor"
)

// Command creates a new command for realtime lot monitoring.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "realtime",
		Short: "Monitor parking lots in realtime mode",
		Long:  "Start the capture and detection pipelines for every registered lot and run until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return monitor.RunMonitor(settings)
		},
	}

	// Set up flags specific to the 'realtime' command
	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the realtime command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().DurationVar(&settings.Realtime.CaptureInterval, "captureinterval", viper.GetDuration("realtime.captureinterval"), "Time between frame grabs")
	cmd.Flags().DurationVar(&settings.Realtime.DetectInterval, "detectinterval", viper.GetDuration("realtime.detectinterval"), "Sleep after a processed detection cycle")
	cmd.Flags().StringVar(&settings.Output.BasePath, "basepath", viper.GetString("output.basepath"), "Base directory for per-lot output folders")
	cmd.Flags().BoolVar(&settings.Realtime.Telemetry.Enabled, "telemetry", viper.GetBool("realtime.telemetry.enabled"), "Enable Prometheus telemetry endpoint")
	cmd.Flags().StringVar(&settings.Realtime.Telemetry.Listen, "listen", viper.GetString("realtime.telemetry.listen"), "Listen address and port of telemetry endpoint")

	// Bind flags to the viper settings
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}
