package commands

import (
	"errors"
	"fmt"
	"os"

	"esimcatalog/internal/picker"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(pickCmd)
}

var pickCmd = &cobra.Command{
	Use:   "pick [directory]",
	Short: "Opens a file picker to choose the dataset to update (the default command).",
	Args:  cobra.MaximumNArgs(1),
	Run:   runPick,
}

func runPick(cmd *cobra.Command, args []string) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	path, err := picker.Pick(cmd.Context(), dir)
	if errors.Is(err, picker.ErrCancelled) {
		fmt.Fprintln(os.Stderr, "Please select a file.")
		return
	}
	if err != nil {
		fatal("failed to run the file picker", err)
	}

	update(cmd.Context(), path)
}
