package updater

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"esimcatalog/internal/chrono"
	"esimcatalog/lib/dataset"
	"esimcatalog/lib/devices"
	"esimcatalog/lib/scrapers/gsmarena"
	"esimcatalog/lib/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	listings []gsmarena.Listing
	// href -> attribute pairs, in page order
	pages      map[string][]string
	listingErr error
	deviceErr  error

	years   []int
	fetched []string
}

func (c *fakeCatalog) DevicesByYear(ctx context.Context, year int) ([]gsmarena.Listing, error) {
	c.years = append(c.years, year)
	if c.listingErr != nil {
		return nil, c.listingErr
	}
	return c.listings, nil
}

func (c *fakeCatalog) Device(ctx context.Context, href string, columns *devices.ColumnSet) (devices.Record, error) {
	c.fetched = append(c.fetched, href)
	if c.deviceErr != nil {
		return devices.Record{}, c.deviceErr
	}
	pairs, ok := c.pages[href]
	if !ok {
		return devices.Record{}, nil
	}
	record := devices.NewRecord()
	columns.Add(devices.MandatoryKeys...)
	for i := 0; i+1 < len(pairs); i += 2 {
		columns.Add(record.Set(pairs[i], pairs[i+1]))
	}
	return record, nil
}

func (c *fakeCatalog) add(name, href string, pairs ...string) {
	c.listings = append(c.listings, gsmarena.Listing{Name: name, Href: href})
	if c.pages == nil {
		c.pages = map[string][]string{}
	}
	if len(pairs) > 0 {
		c.pages[href] = pairs
	}
}

var testNow = time.Date(2026, time.October, 18, 12, 0, 0, 0, time.UTC)

func newTestUpdater(catalog Catalog) (Updater, *[]time.Duration) {
	waits := &[]time.Duration{}
	opts := DefaultOptions()
	opts.Clock = chrono.FixedTime(testNow)
	opts.Sleep = func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return ctx.Err()
	}
	return New(catalog, opts), waits
}

func writeInput(t testing.TB, contents string) string {
	path := filepath.Join(t.TempDir(), "devices.csv")
	err := os.WriteFile(path, []byte(contents), 0644)
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func outputFiles(t testing.TB, dir string) []string {
	matches, err := filepath.Glob(filepath.Join(dir, "*_"+DefaultOutputSuffix+".csv"))
	if err != nil {
		t.Fatal(err)
	}
	return matches
}

func TestRunAlreadyKnown(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:updater")
	defer cleanup()

	input := writeInput(t, "Brand,Model Name,SIM\nGoogle,Pixel7,eSIM\n")
	catalog := &fakeCatalog{}
	catalog.add("Pixel 7", "pixel_7.php", "Model Name", "Pixel 7", "SIM", "eSIM")

	updater, waits := newTestUpdater(catalog)
	summary, err := updater.Run(context.Background(), input)
	require.NoError(t, err)

	require.Empty(t, catalog.fetched)
	require.False(t, summary.Updated())
	require.Equal(t, 1, summary.Listed)
	require.Equal(t, 1, summary.AlreadyKnown)
	require.Equal(t, 2026, summary.Year)
	require.Len(t, summary.RunID, 8)
	require.Empty(t, outputFiles(t, filepath.Dir(input)))

	// pacing applies to known devices too
	require.Equal(t, []time.Duration{time.Second}, *waits)
}

func TestRunFetchesExactlyTheNewDevices(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:updater")
	defer cleanup()

	input := writeInput(t, "Brand,Model Name\nGoogle,Google Pixel 8\nApple,Apple iPhone 15\n")
	catalog := &fakeCatalog{}
	catalog.add("GooglePixel 8", "pixel_8.php")
	catalog.add("SamsungGalaxy A15", "a15.php", "Model Name", "Samsung Galaxy A15", "SIM", "Dual SIM (Nano-SIM)")
	catalog.add("AppleiPhone 15", "iphone_15.php")
	catalog.add("NothingPhone (3)", "nothing_3.php", "Model Name", "Nothing Phone (3)", "SIM Type", "Nano-SIM, eSIM")

	updater, waits := newTestUpdater(catalog)
	summary, err := updater.Run(context.Background(), input)
	require.NoError(t, err)

	require.Equal(t, []string{"a15.php", "nothing_3.php"}, catalog.fetched)
	require.Len(t, *waits, 4)
	require.Equal(t, Summary{
		RunID:        summary.RunID,
		Year:         2026,
		Listed:       4,
		AlreadyKnown: 2,
		Fetched:      2,
		Qualified:    1,
		Discarded:    1,
		NewColumns:   3,
		OutputPath:   filepath.Join(filepath.Dir(input), "181026_GSMArena_eSIM_Devices.csv"),
	}, summary)
	require.True(t, summary.Updated())

	out, err := dataset.Load(summary.OutputPath)
	require.NoError(t, err)
	expected := dataset.Table{
		// the columns discovered while fetching the discarded device stay
		Columns: []string{"Brand", "Model Name", "Model Image", "SIM", "SIM Type"},
		Rows: [][]string{
			{"Google", "Google Pixel 8", "", "", ""},
			{"Apple", "Apple iPhone 15", "", "", ""},
			{"", "Nothing Phone (3)", "", "", "Nano-SIM, eSIM"},
		},
	}
	if diff := cmp.Diff(expected, out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}

	// the input is left alone
	in, err := os.ReadFile(input)
	require.NoError(t, err)
	require.Equal(t, "Brand,Model Name\nGoogle,Google Pixel 8\nApple,Apple iPhone 15\n", string(in))
}

func TestRunIsIdempotent(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:updater")
	defer cleanup()

	input := writeInput(t, "Model Name,SIM\nAcme One,eSIM\n")
	catalog := &fakeCatalog{}
	catalog.add("AcmeTwo", "two.php", "Model Name", "Acme Two", "SIM", "eSIM")

	updater, _ := newTestUpdater(catalog)
	first, err := updater.Run(context.Background(), input)
	require.NoError(t, err)
	require.True(t, first.Updated())

	// feeding the output back in finds nothing new
	catalog.fetched = nil
	second, err := updater.Run(context.Background(), first.OutputPath)
	require.NoError(t, err)
	require.False(t, second.Updated())
	require.Equal(t, 1, second.AlreadyKnown)
	require.Empty(t, catalog.fetched)
	require.NotEqual(t, first.RunID, second.RunID)
}

func TestRunColumnsOnlyGrow(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:updater")
	defer cleanup()

	input := writeInput(t, "Model Name,Price,SIM\nAcme One,99,eSIM\n")
	catalog := &fakeCatalog{}
	catalog.add("Acme Two", "two.php",
		"Model Name", "Acme Two",
		"SIM", "Nano-SIM and eSIM",
		"Battery", "5000 mAh",
		"Battery", "33W wired",
	)

	updater, _ := newTestUpdater(catalog)
	summary, err := updater.Run(context.Background(), input)
	require.NoError(t, err)

	out, err := dataset.Load(summary.OutputPath)
	require.NoError(t, err)
	require.Equal(t, []string{"Model Name", "Price", "SIM", "Brand", "Model Image", "Battery", "Battery_1"}, out.Columns)
	require.Equal(t, []string{"Acme One", "99", "eSIM", "", "", "", ""}, out.Rows[0])
	require.Equal(t, []string{"Acme Two", "", "Nano-SIM and eSIM", "", "", "5000 mAh", "33W wired"}, out.Rows[1])
	require.Equal(t, 4, summary.NewColumns)
}

func TestRunMissingInput(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:updater")
	defer cleanup()

	input := filepath.Join(t.TempDir(), "missing.csv")
	catalog := &fakeCatalog{}
	catalog.add("Acme One", "one.php", "Model Name", "Acme One", "eSIM support", "eSIM")

	updater, _ := newTestUpdater(catalog)
	summary, err := updater.Run(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, []string{"one.php"}, catalog.fetched)
	require.True(t, summary.Updated())
}

func TestRunEmptyRecordIsDiscarded(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:updater")
	defer cleanup()

	input := writeInput(t, "Model Name\n")
	catalog := &fakeCatalog{}
	catalog.add("Rate Limited", "limited.php")

	updater, _ := newTestUpdater(catalog)
	summary, err := updater.Run(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Fetched)
	require.Equal(t, 1, summary.Discarded)
	require.False(t, summary.Updated())
}

func TestRunYearOverride(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:updater")
	defer cleanup()

	catalog := &fakeCatalog{}
	opts := DefaultOptions()
	opts.Clock = chrono.FixedTime(testNow)
	opts.Year = 2023
	opts.Pace = 0
	summary, err := New(catalog, opts).Run(context.Background(), writeInput(t, "Model Name\n"))
	require.NoError(t, err)
	require.Equal(t, []int{2023}, catalog.years)
	require.Equal(t, 2023, summary.Year)
}

func TestRunFatalErrors(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:updater")
	defer cleanup()

	unreachable := fmt.Errorf("%w: GET https://www.gsmarena.com/: dial tcp: connection refused", gsmarena.ErrUnreachable)

	testCases := []struct {
		name    string
		catalog *fakeCatalog
	}{
		{
			name:    "listing",
			catalog: &fakeCatalog{listingErr: unreachable},
		},
		{
			name: "device",
			catalog: func() *fakeCatalog {
				c := &fakeCatalog{deviceErr: unreachable}
				c.add("Acme One", "one.php", "Model Name", "Acme One", "SIM", "eSIM")
				return c
			}(),
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			input := writeInput(t, "Model Name\nAcme Zero\n")
			updater, _ := newTestUpdater(testCase.catalog)
			_, err := updater.Run(context.Background(), input)
			require.ErrorIs(t, err, gsmarena.ErrUnreachable)
			require.True(t, gsmarena.IsNonRecoverable(err))
			require.Empty(t, outputFiles(t, filepath.Dir(input)))
		})
	}
}

func TestRunCancelled(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:updater")
	defer cleanup()

	catalog := &fakeCatalog{}
	catalog.add("Acme One", "one.php", "Model Name", "Acme One", "SIM", "eSIM")
	catalog.add("Acme Two", "two.php", "Model Name", "Acme Two", "SIM", "eSIM")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	input := writeInput(t, "Model Name\n")
	updater, _ := newTestUpdater(catalog)
	_, err := updater.Run(ctx, input)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, []string{"one.php"}, catalog.fetched)
	require.Empty(t, outputFiles(t, filepath.Dir(input)))
}

func TestRunRefusesToOverwriteInput(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:updater")
	defer cleanup()

	input := filepath.Join(t.TempDir(), "181026_GSMArena_eSIM_Devices.csv")
	err := os.WriteFile(input, []byte("Model Name\nAcme Zero\n"), 0644)
	require.NoError(t, err)

	catalog := &fakeCatalog{}
	catalog.add("Acme One", "one.php", "Model Name", "Acme One", "SIM", "eSIM")

	updater, _ := newTestUpdater(catalog)
	_, err = updater.Run(context.Background(), input)
	require.ErrorIs(t, err, ErrOverwriteInput)

	contents, err := os.ReadFile(input)
	require.NoError(t, err)
	require.Equal(t, "Model Name\nAcme Zero\n", string(contents))
}

func TestRunListingRepeatsDevice(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:updater")
	defer cleanup()

	input := writeInput(t, "Model Name\nAcme Zero\n")
	catalog := &fakeCatalog{}
	catalog.add("AcmeOne", "one.php", "Model Name", "Acme One", "SIM", "eSIM")
	catalog.add("Acme One", "one.php", "Model Name", "Acme One", "SIM", "eSIM")

	updater, waits := newTestUpdater(catalog)
	summary, err := updater.Run(context.Background(), input)
	require.NoError(t, err)

	require.Equal(t, []string{"one.php"}, catalog.fetched)
	require.Equal(t, 1, summary.AlreadyKnown)
	require.Equal(t, 1, summary.Qualified)
	require.Len(t, *waits, 2)

	out, err := dataset.Load(summary.OutputPath)
	require.NoError(t, err)
	names, err := out.Column(devices.ModelNameKey)
	require.NoError(t, err)
	require.Equal(t, []string{"Acme Zero", "Acme One"}, names)
}

func TestRunWarnsWhenReplacingOutput(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:updater")
	defer cleanup()

	previous := slog.Default()
	defer slog.SetDefault(previous)
	var logs bytes.Buffer
	telemetry.InitSlogTo(&logs, false)

	input := writeInput(t, "Model Name\nAcme Zero\n")
	existing := filepath.Join(filepath.Dir(input), "181026_GSMArena_eSIM_Devices.csv")
	err := os.WriteFile(existing, []byte("Model Name\nFrom another input\n"), 0644)
	require.NoError(t, err)

	catalog := &fakeCatalog{}
	catalog.add("Acme One", "one.php", "Model Name", "Acme One", "SIM", "eSIM")

	updater, _ := newTestUpdater(catalog)
	summary, err := updater.Run(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, existing, summary.OutputPath)
	require.Contains(t, logs.String(), "replacing an existing output file")

	contents, err := os.ReadFile(existing)
	require.NoError(t, err)
	require.Equal(t, "Model Name,Brand,Model Image,SIM\nAcme Zero,,,\nAcme One,,,eSIM\n", string(contents))
}
