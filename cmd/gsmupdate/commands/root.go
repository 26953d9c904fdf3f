package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"esimcatalog/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	flagYear     int
	flagConfig   string
	flagDumpHttp string
	flagDebug    bool
)

var tel *telemetry.Telemetry

func init() {
	flags := rootCmd.PersistentFlags()
	flags.IntVar(&flagYear, "year", 0, "The release year to list, defaults to the current year.")
	flags.StringVar(&flagConfig, "config", "gsmupdate.json5", "The config file, searched for upwards from the working directory.")
	flags.StringVar(&flagDumpHttp, "dump-http", "", "A directory to write HTTP transcripts to (only with --debug).")
	flags.BoolVar(&flagDebug, "debug", false, "Enables debug logging.")
}

var rootCmd = &cobra.Command{
	Use:   "gsmupdate",
	Short: "gsmupdate adds this year's eSIM capable devices from GSMArena to an existing CSV dataset.",
	Long: `gsmupdate lists the devices GSMArena has for the current year, fetches
the details of the ones the dataset doesn't have yet and writes the dataset
plus every new eSIM capable device to <DDMMYY>_GSMArena_eSIM_Devices.csv
next to the input file. Without a subcommand it opens a file picker.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupTelemetry(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		shutdownTelemetry()
	},
	Run: runPick,
}

func setupTelemetry(ctx context.Context) {
	telemetry.InitSlog(flagDebug)

	t, err := telemetry.SetupFromEnv(ctx, "gsmupdate")
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		slog.Warn("failed to setup telemetry, continuing without it", "err", err)
		return
	}
	tel = &t
	telemetry.InstrumentPerfStats(ctx)
}

func shutdownTelemetry() {
	if tel == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := tel.Shutdown(ctx)
	if err != nil {
		slog.Warn("failed to flush telemetry", "err", err)
	}
	tel = nil
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		shutdownTelemetry()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
