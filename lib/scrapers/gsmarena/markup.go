package gsmarena

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"esimcatalog/lib/devices"
	"esimcatalog/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
)

// Markup extracts data out of catalog pages for one version of the site's
// layout.
type Markup interface {
	Name() string
	// Listing returns the devices of a results page in page order, hrefs
	// resolved against base.
	Listing(ctx context.Context, doc *goquery.Document, base *url.URL) []Listing
	// Device builds the record of a detail page, adding every key it uses
	// to columns. it fails with ErrMissingStructure when the page doesn't
	// identify a device.
	Device(ctx context.Context, doc *goquery.Document, columns *devices.ColumnSet) (devices.Record, error)
}

// the layout used since the 2016 redesign
const (
	v1ListingSelector = "div.makers a"
	v1NameSelector    = "h1.specs-phone-name-title"
	v1PhotoSelector   = "div.specs-photo-main img"
)

const NoImage = "N/A"

type MarkupV1 struct{}

func (MarkupV1) Name() string {
	return "v1"
}

func (MarkupV1) Listing(ctx context.Context, doc *goquery.Document, base *url.URL) []Listing {
	anchors := htmlutil.GetAnchors(ctx, doc.Find(v1ListingSelector), base)
	listings := make([]Listing, len(anchors))
	for i, a := range anchors {
		listings[i] = Listing{Name: a.Name, Href: a.Href}
	}
	return listings
}

func (MarkupV1) Device(ctx context.Context, doc *goquery.Document, columns *devices.ColumnSet) (devices.Record, error) {
	ctx, span := tracer.Start(ctx, "markupv1:Device")
	defer span.End()

	name := htmlutil.CellText(doc.Find(v1NameSelector).First())
	if name == "" {
		return devices.Record{}, fmt.Errorf("%w: no %s", ErrMissingStructure, v1NameSelector)
	}
	span.SetAttributes(attribute.String("name", name))

	image := NoImage
	if src, ok := doc.Find(v1PhotoSelector).First().Attr("src"); ok && strings.TrimSpace(src) != "" {
		image = strings.TrimSpace(src)
	}

	record := devices.NewRecord()
	record.Set(devices.BrandKey, strings.Fields(name)[0])
	record.Set(devices.ModelNameKey, name)
	record.Set(devices.ModelImageKey, image)
	columns.Add(devices.MandatoryKeys...)

	// tables nest on some pages, Find is recursive so rows of an inner
	// table are seen once per enclosing table and land under suffixed keys.
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			switch cells.Length() {
			case 0:
				return
			case 1:
				slog.DebugContext(ctx, "skipping table row with a single cell", "device", name, "text", htmlutil.CellText(cells))
				return
			}

			key := htmlutil.CellText(cells.Eq(0))
			value := htmlutil.CellText(cells.Eq(1))
			stored := record.Set(key, value)
			columns.Add(stored)
		})
	})

	span.SetAttributes(attribute.Int("attributes", record.Len()))
	return record, nil
}
