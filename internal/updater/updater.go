package updater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"esimcatalog/internal/chrono"
	"esimcatalog/lib/dataset"
	"esimcatalog/lib/devices"
	"esimcatalog/lib/scrapers/gsmarena"
	"esimcatalog/lib/textutil"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrOverwriteInput is returned when the dated output name is the input
// file itself, which happens when today's output is fed back in.
var ErrOverwriteInput = errors.New("output file would replace the input file")

// Catalog is the remote device catalog, *gsmarena.Client implements it.
type Catalog interface {
	DevicesByYear(ctx context.Context, year int) ([]gsmarena.Listing, error)
	Device(ctx context.Context, href string, columns *devices.ColumnSet) (devices.Record, error)
}

// DefaultOutputSuffix names the output "<DDMMYY>_GSMArena_eSIM_Devices.csv".
const DefaultOutputSuffix = "GSMArena_eSIM_Devices"

type Options struct {
	Predicate devices.FeaturePredicate
	// wait after every listed device
	Pace time.Duration
	// new devices at least this similar to a known one are reported
	SimilarityThreshold float64
	OutputSuffix        string
	// 0 means the clock's current year
	Year int

	Clock chrono.TimeAPI
	Sleep func(ctx context.Context, d time.Duration) error
}

func DefaultOptions() Options {
	return Options{
		Predicate:           devices.ESIM,
		Pace:                time.Second,
		SimilarityThreshold: 0.97,
		OutputSuffix:        DefaultOutputSuffix,
	}
}

type Updater struct {
	catalog Catalog
	opts    Options
}

func New(catalog Catalog, opts Options) Updater {
	if opts.Predicate == (devices.FeaturePredicate{}) {
		opts.Predicate = devices.ESIM
	}
	if opts.OutputSuffix == "" {
		opts.OutputSuffix = DefaultOutputSuffix
	}
	if opts.Clock == nil {
		opts.Clock = chrono.NewStandardTime()
	}
	if opts.Sleep == nil {
		opts.Sleep = gsmarena.Sleep
	}
	return Updater{catalog: catalog, opts: opts}
}

type Summary struct {
	RunID string
	Year  int
	// devices on the year's listing
	Listed int
	// listed devices the input already had
	AlreadyKnown int
	Fetched      int
	Qualified    int
	// fetched devices that failed the predicate or had no details
	Discarded int
	// columns the output has that the input didn't
	NewColumns int
	// empty when nothing was written
	OutputPath string
}

func (s Summary) Updated() bool {
	return s.OutputPath != ""
}

// Run brings the dataset at inputPath up to date with the catalog. the
// input is never modified: when the current year lists devices that are
// new and pass the predicate, the merged table is written to a dated file
// next to it. any error returned means nothing was written.
func (u Updater) Run(ctx context.Context, inputPath string) (Summary, error) {
	ctx, span := tracer.Start(ctx, "updater:Run")
	defer span.End()

	runId, err := random.String(8)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to generate run id")
		return Summary{}, err
	}
	logger := slog.Default().With("run", runId)

	summary := Summary{
		RunID: runId,
		Year:  u.opts.Year,
	}
	if summary.Year == 0 {
		summary.Year = u.opts.Clock.Now().Year()
	}
	span.SetAttributes(
		attribute.String("run", runId),
		attribute.String("input", inputPath),
		attribute.Int("year", summary.Year),
	)

	table := dataset.LoadOrEmpty(inputPath)
	knownNames, err := table.Column(devices.ModelNameKey)
	if err != nil && !table.Empty() {
		logger.WarnContext(ctx, "input has no model name column, every device is new", "path", inputPath)
	}
	known := table.KnownNames()

	listings, err := u.catalog.DevicesByYear(ctx, summary.Year)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch listing")
		return Summary{}, fmt.Errorf("fetch listing: %w", err)
	}
	summary.Listed = len(listings)
	logger.InfoContext(ctx, "listed devices", "year", summary.Year, "count", len(listings), "known", len(known))

	columns := devices.NewColumnSet()
	// names handled earlier in this run, the listing can repeat a device
	seen := map[string]struct{}{}
	var pending []devices.Record
	for _, listing := range listings {
		normalized := textutil.NormalizeName(listing.Name)
		_, isKnown := known[normalized]
		_, isSeen := seen[normalized]
		seen[normalized] = struct{}{}

		switch {
		case isKnown:
			summary.AlreadyKnown++
			logger.InfoContext(ctx, "device already exists in the dataset", "device", listing.Name)
		case isSeen:
			summary.AlreadyKnown++
			logger.InfoContext(ctx, "device listed more than once, skipping", "device", listing.Name)
		default:
			record, err := u.fetch(ctx, logger, listing, knownNames, columns)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to fetch device")
				return Summary{}, fmt.Errorf("fetch %q: %w", listing.Name, err)
			}
			summary.Fetched++

			key, qualifies := u.opts.Predicate.MatchingKey(record)
			switch {
			case record.Empty():
				summary.Discarded++
				logger.WarnContext(ctx, "no details for device, skipping", "device", listing.Name, "url", listing.Href)
			case !qualifies:
				summary.Discarded++
				logger.InfoContext(ctx, "device does not support the feature, skipping", "device", listing.Name, "feature", u.opts.Predicate.ValueMarker)
			default:
				summary.Qualified++
				pending = append(pending, record)
				qualifiedCounter.Add(ctx, 1)
				logger.InfoContext(ctx, "device qualifies", "device", record.Name(), "key", key)
			}
		}

		err := u.opts.Sleep(ctx, u.opts.Pace)
		if err != nil {
			return Summary{}, err
		}
	}

	if len(pending) == 0 {
		logger.InfoContext(ctx, "no new devices found")
		return summary, nil
	}

	outputPath := dataset.OutputPath(inputPath, u.opts.Clock.Now(), u.opts.OutputSuffix)
	if samePath(outputPath, inputPath) {
		span.SetStatus(codes.Error, "output path is the input path")
		return Summary{}, fmt.Errorf("%w: %s", ErrOverwriteInput, outputPath)
	}
	if _, err := os.Stat(outputPath); err == nil {
		logger.WarnContext(ctx, "replacing an existing output file", "path", outputPath)
	}

	merged := table.Merge(pending, columns)
	err = merged.WriteFile(outputPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write output")
		return Summary{}, fmt.Errorf("write %s: %w", outputPath, err)
	}

	summary.NewColumns = len(merged.Columns) - len(table.Columns)
	summary.OutputPath = outputPath
	logger.InfoContext(
		ctx, "dataset updated",
		"path", outputPath,
		"added", len(pending),
		"rows", len(merged.Rows),
		"new_columns", summary.NewColumns,
	)
	return summary, nil
}

func (u Updater) fetch(
	ctx context.Context,
	logger *slog.Logger,
	listing gsmarena.Listing,
	knownNames []string,
	columns *devices.ColumnSet,
) (devices.Record, error) {
	ctx, span := tracer.Start(ctx, "updater:fetch")
	defer span.End()

	closest, score, ok := textutil.ClosestName(listing.Name, knownNames)
	if ok && score >= u.opts.SimilarityThreshold {
		logger.WarnContext(
			ctx, "new device looks like a known one",
			"device", listing.Name,
			"known", closest,
			"similarity", score,
		)
	}

	logger.InfoContext(ctx, "fetching data for new device", "device", listing.Name)
	return u.catalog.Device(ctx, listing.Href, columns)
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
