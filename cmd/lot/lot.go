// Package lot implements the lot management subcommands: registering,
// listing and removing monitored parking lots.
package lot

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/trippieshadow66/Spotection/internal/conf"
	"github.com/trippieshadow66/Spotection/internal/datastore"
)

// Command creates the lot management command tree.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lot",
		Short: "Manage monitored parking lots",
	}

	cmd.AddCommand(
		addCommand(settings),
		listCommand(settings),
		updateCommand(settings),
		removeCommand(settings),
	)

	return cmd
}

func openStore(settings *conf.Settings) (datastore.Interface, error) {
	store := datastore.New(settings)
	if err := store.Open(); err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return store, nil
}

func addCommand(settings *conf.Settings) *cobra.Command {
	var (
		name   string
		stream string
		flip   bool
		spots  int
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a new lot",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" || stream == "" {
				return fmt.Errorf("both --name and --stream are required")
			}

			store, err := openStore(settings)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			lot := &datastore.Lot{
				Name:       name,
				StreamURL:  stream,
				Flip:       flip,
				TotalSpots: spots,
			}
			if err := store.CreateLot(lot); err != nil {
				return err
			}

			fmt.Printf("Registered lot %d (%s)\n", lot.ID, lot.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name of the lot")
	cmd.Flags().StringVar(&stream, "stream", "", "Camera stream URL (rtsp:// or http(s)://)")
	cmd.Flags().BoolVar(&flip, "flip", false, "Rotate captured frames 180 degrees")
	cmd.Flags().IntVar(&spots, "spots", 0, "Total number of parking spots")

	return cmd
}

func listCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered lots",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(settings)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			lots, err := store.GetAllLots()
			if err != nil {
				return err
			}
			if len(lots) == 0 {
				fmt.Println("No lots registered")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSTREAM\tFLIP\tSPOTS")
			for i := range lots {
				fmt.Fprintf(w, "%d\t%s\t%s\t%v\t%d\n",
					lots[i].ID, lots[i].Name, lots[i].StreamURL, lots[i].Flip, lots[i].TotalSpots)
			}
			return w.Flush()
		},
	}
}

func updateCommand(settings *conf.Settings) *cobra.Command {
	var (
		name   string
		stream string
		flip   bool
		spots  int
	)

	cmd := &cobra.Command{
		Use:   "update [lot id]",
		Short: "Change a registered lot's name, stream, flip or spot count",
		Long:  "Update a lot row. Only the given flags change; the running monitor picks up a flip toggle on its next capture cycle.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid lot id %q", args[0])
			}

			store, err := openStore(settings)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			lot, err := store.GetLot(uint(id))
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("name") {
				lot.Name = name
			}
			if cmd.Flags().Changed("stream") {
				lot.StreamURL = stream
			}
			if cmd.Flags().Changed("flip") {
				lot.Flip = flip
			}
			if cmd.Flags().Changed("spots") {
				lot.TotalSpots = spots
			}

			if err := store.UpdateLot(&lot); err != nil {
				return err
			}

			fmt.Printf("Updated lot %d (%s)\n", lot.ID, lot.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name of the lot")
	cmd.Flags().StringVar(&stream, "stream", "", "Camera stream URL (rtsp:// or http(s)://)")
	cmd.Flags().BoolVar(&flip, "flip", false, "Rotate captured frames 180 degrees")
	cmd.Flags().IntVar(&spots, "spots", 0, "Total number of parking spots")

	return cmd
}

func removeCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "remove [lot id]",
		Short: "Remove a lot, its detection history and its output folders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid lot id %q", args[0])
			}
			lotID := uint(id)

			store, err := openStore(settings)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteLot(lotID); err != nil {
				return err
			}

			// Drop the lot's frames, overlays, maps and stall configuration.
			if err := os.RemoveAll(settings.LotBasePath(lotID)); err != nil {
				return fmt.Errorf("removing lot folders: %w", err)
			}

			fmt.Printf("Removed lot %d\n", lotID)
			return nil
		},
	}
}
