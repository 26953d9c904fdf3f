package gsmarena

import (
	"context"
	"net/url"
	"os"
	"strings"
	"testing"

	"esimcatalog/lib/devices"
	"esimcatalog/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func readDocument(t testing.TB, name string) *goquery.Document {
	f, err := os.Open("testdata/" + name)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func parseDocument(t testing.TB, body string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestMarkupV1Listing(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:gsmarena")
	defer cleanup()

	base, err := url.Parse("https://www.gsmarena.com/")
	require.NoError(t, err)

	listings := MarkupV1{}.Listing(context.Background(), readDocument(t, "listing.html"), base)
	require.Equal(t, []Listing{
		{Name: "GooglePixel 8", Href: "https://www.gsmarena.com/google_pixel_8-12546.php"},
		{Name: "SamsungGalaxy A15", Href: "https://www.gsmarena.com/samsung_galaxy_a15-12637.php"},
		{Name: "AppleiPhone 15", Href: "https://www.gsmarena.com/apple_iphone_15-12559.php"},
	}, listings)
}

func TestMarkupV1ListingWithoutDevices(t *testing.T) {
	listings := MarkupV1{}.Listing(context.Background(), parseDocument(t, "<html><body><p>No phones found</p></body></html>"), nil)
	require.Empty(t, listings)
}

func TestMarkupV1Device(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:gsmarena")
	defer cleanup()

	columns := &devices.ColumnSet{}
	record, err := MarkupV1{}.Device(context.Background(), readDocument(t, "device.html"), columns)
	require.NoError(t, err)

	require.Equal(t, []string{
		"Brand", "Model Name", "Model Image",
		"Technology", "Dimensions", "SIM", "Type", "Charging",
		"", "_1",
	}, record.Keys())
	require.Equal(t, "Google Pixel 8", record.Name())

	brand, _ := record.Get(devices.BrandKey)
	require.Equal(t, "Google", brand)
	image, _ := record.Get(devices.ModelImageKey)
	require.Equal(t, "https://fdn2.gsmarena.com/vv/bigpic/google-pixel-8.jpg", image)
	sim, _ := record.Get("SIM")
	require.Equal(t, "Nano-SIM and eSIM", sim)
	price, _ := record.Get("_1")
	require.Equal(t, "$499", price)

	// the single cell row never becomes an attribute
	for _, k := range record.Keys() {
		v, _ := record.Get(k)
		require.NotEqual(t, "IP68 dust/water resistant", v)
	}

	require.Equal(t, record.Keys(), columns.Names())
	require.True(t, devices.ESIM.Matches(record))
}

func TestMarkupV1DeviceDuplicateKeys(t *testing.T) {
	doc := parseDocument(t, `
	<h1 class="specs-phone-name-title">Acme One</h1>
	<table>
		<tr><td>Battery</td><td>5000 mAh</td></tr>
		<tr><td>Battery</td><td>33W wired</td></tr>
	</table>
	<table>
		<tr><td>Battery</td><td>15W wireless</td></tr>
	</table>`)

	columns := devices.NewColumnSet("Battery")
	record, err := MarkupV1{}.Device(context.Background(), doc, columns)
	require.NoError(t, err)

	for key, expected := range map[string]string{
		"Battery":   "5000 mAh",
		"Battery_1": "33W wired",
		"Battery_2": "15W wireless",
	} {
		value, ok := record.Get(key)
		require.True(t, ok, key)
		require.Equal(t, expected, value)
	}
	image, _ := record.Get(devices.ModelImageKey)
	require.Equal(t, NoImage, image)

	require.Equal(t, []string{"Brand", "Model Name", "Model Image", "Battery", "Battery_1", "Battery_2"}, columns.Names())
	require.False(t, devices.ESIM.Matches(record))
}

func TestMarkupV1DeviceWithoutHeading(t *testing.T) {
	columns := &devices.ColumnSet{}
	record, err := MarkupV1{}.Device(
		context.Background(),
		parseDocument(t, `<table><tr><td>SIM</td><td>eSIM</td></tr></table>`),
		columns,
	)
	require.ErrorIs(t, err, ErrMissingStructure)
	require.True(t, record.Empty())
	require.Equal(t, 0, columns.Len())

	_, err = MarkupV1{}.Device(
		context.Background(),
		parseDocument(t, `<h1 class="specs-phone-name-title">   </h1>`),
		columns,
	)
	require.ErrorIs(t, err, ErrMissingStructure)
}
