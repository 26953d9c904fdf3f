package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"esimcatalog/lib/scrapers/gsmarena"
	"esimcatalog/lib/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run <file.csv>",
	Short: "Updates the given dataset without asking for a file.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		update(cmd.Context(), args[0])
	},
}

func update(ctx context.Context, inputPath string) {
	cfg := loadConfig()
	u := createUpdater(cfg, createClient(cfg))

	fmt.Println("Fetching data... Please wait")
	summary, err := u.Run(ctx, inputPath)
	if err != nil {
		fatalRun(err)
	}
	printSummary(os.Stdout, summary)
}

// fatalRun reports an error that ended a run in terms the operator can act on.
func fatalRun(err error) {
	switch {
	case errors.Is(err, context.Canceled):
		fatal("Cancelled.", err)
	case errors.Is(err, gsmarena.ErrUnreachable):
		fatal("Network error. Please check your connection and try again.", err)
	case errors.Is(err, gsmarena.ErrUnexpected):
		fatal(fmt.Sprintf("An unexpected error occurred: %v", err), err)
	default:
		fatal("failed to update the dataset", err)
	}
}

func fatal(message string, err error) {
	shutdownTelemetry()
	serviceutil.Fatal(message, err)
}
