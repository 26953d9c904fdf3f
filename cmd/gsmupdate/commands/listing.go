package commands

import (
	"os"

	"esimcatalog/internal/chrono"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(listingCmd)
}

var listingCmd = &cobra.Command{
	Use:   "listing [--year <year>]",
	Short: "Prints the devices GSMArena lists for a year without fetching their details.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		client := createClient(loadConfig())

		year := flagYear
		if year == 0 {
			year = chrono.NewStandardTime().Now().Year()
		}
		listings, err := client.DevicesByYear(cmd.Context(), year)
		if err != nil {
			fatalRun(err)
		}

		t := newTable(os.Stdout)
		t.AppendHeader(table.Row{"#", "Name", "Url"})
		for i, l := range listings {
			t.AppendRow(table.Row{i + 1, l.Name, l.Href})
		}
		t.AppendFooter(table.Row{"", "Total", len(listings)})
		t.Render()
	},
}
