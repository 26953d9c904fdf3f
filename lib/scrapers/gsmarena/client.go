package gsmarena

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"esimcatalog/lib/devices"
	"esimcatalog/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

const DefaultBaseUrl = "https://www.gsmarena.com/"

type Options struct {
	BaseUrl   string
	UserAgent string
	// per request
	Timeout time.Duration
	// every request is preceded by a random wait in [MinDelay, MaxDelay)
	MinDelay time.Duration
	MaxDelay time.Duration
	// wait after a 429 before trying again
	RateLimitWait time.Duration
	// number of 429 responses tolerated for a single page
	MaxAttempts int

	// defaults to MarkupV1
	Markup Markup
	// when non-nil, request/response transcripts are written here while
	// debug logging is enabled
	Transcripts restyutil.InstrumentOutput
	// turns off the cloudflare transport, the test servers don't need it
	DisableBypass bool
	// defaults to a context aware time.Sleep
	Sleep func(ctx context.Context, d time.Duration) error
}

func DefaultOptions() Options {
	return Options{
		BaseUrl:       DefaultBaseUrl,
		UserAgent:     "Mozilla/5.0",
		Timeout:       10 * time.Second,
		MinDelay:      5 * time.Second,
		MaxDelay:      10 * time.Second,
		RateLimitWait: 60 * time.Second,
		MaxAttempts:   5,
	}
}

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client
	opts    Options
}

func NewClient(opts Options) (*Client, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}
	if !baseUrl.IsAbs() {
		return nil, fmt.Errorf("base url must be absolute: %q", opts.BaseUrl)
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.Markup == nil {
		opts.Markup = MarkupV1{}
	}
	if opts.Sleep == nil {
		opts.Sleep = Sleep
	}

	client := resty.New()
	if !opts.DisableBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	if opts.UserAgent != "" {
		client.SetHeader("user-agent", opts.UserAgent)
	}
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}

	restyutil.InstrumentClient(client, tracer, opts.Transcripts)

	return &Client{
		BaseUrl: baseUrl,
		Http:    client,
		opts:    opts,
	}, nil
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) jitter() time.Duration {
	spread := c.opts.MaxDelay - c.opts.MinDelay
	if spread <= 0 {
		return c.opts.MinDelay
	}
	return c.opts.MinDelay + rand.N(spread)
}

// resolve turns a reference found on a catalog page into an absolute url.
func (c *Client) resolve(ref string) (string, error) {
	parsed, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return c.BaseUrl.ResolveReference(parsed).String(), nil
}

// fetch gets and parses a catalog page. it returns a nil document and a
// nil error when the catalog kept rate limiting us.
func (c *Client) fetch(ctx context.Context, ref string) (*goquery.Document, error) {
	ctx, span := tracer.Start(ctx, "client:fetch")
	defer span.End()

	link, err := c.resolve(ref)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to resolve url")
		return nil, fmt.Errorf("%w: bad reference %q: %w", ErrUnexpected, ref, err)
	}
	span.SetAttributes(attribute.String("url", link))

	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		err := c.opts.Sleep(ctx, c.jitter())
		if err != nil {
			return nil, err
		}

		res, err := c.Http.R().
			SetContext(ctx).
			Get(link)
		if err != nil {
			err = classify(ctx, link, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to fetch")
			return nil, err
		}
		requestCounter.Add(ctx, 1, metric.WithAttributes(attribute.Int("status", res.StatusCode())))

		if res.StatusCode() == http.StatusTooManyRequests {
			rateLimitCounter.Add(ctx, 1)
			slog.WarnContext(
				ctx, "too many requests, retrying after a delay",
				"url", link,
				"attempt", attempt,
				"max_attempts", c.opts.MaxAttempts,
				"wait", c.opts.RateLimitWait,
			)
			err = c.opts.Sleep(ctx, c.opts.RateLimitWait)
			if err != nil {
				return nil, err
			}
			continue
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to parse html")
			return nil, fmt.Errorf("%w: parse %s: %w", ErrUnexpected, link, err)
		}
		return doc, nil
	}

	span.SetStatus(codes.Error, "rate limited")
	slog.WarnContext(ctx, "giving up on rate limited page", "url", link, "attempts", c.opts.MaxAttempts)
	return nil, nil
}

// Listing is one device as shown on a results page.
type Listing struct {
	Name string
	// absolute url of the device's detail page
	Href string
}

// ListingRef is the results page of every device released in year.
func ListingRef(year int) string {
	return fmt.Sprintf("results.php3?nYearMin=%d&nYearMax=%d", year, year)
}

// DevicesByYear lists the devices released in year. the list is empty when
// the results page can't be read or isn't laid out as expected.
func (c *Client) DevicesByYear(ctx context.Context, year int) ([]Listing, error) {
	ctx, span := tracer.Start(ctx, "client:DevicesByYear")
	defer span.End()
	span.SetAttributes(attribute.Int("year", year))

	doc, err := c.fetch(ctx, ListingRef(year))
	if err != nil {
		return nil, err
	}
	if doc == nil {
		slog.WarnContext(ctx, "failed to retrieve the device listing", "year", year)
		return nil, nil
	}

	listings := c.opts.Markup.Listing(ctx, doc, c.BaseUrl)
	if len(listings) == 0 {
		slog.WarnContext(ctx, "no devices found on listing page", "year", year, "markup", c.opts.Markup.Name())
	}
	span.SetAttributes(attribute.Int("devices", len(listings)))
	return listings, nil
}

// Device fetches a detail page and extracts every attribute it has,
// every key used is added to columns. the record is empty when the page
// couldn't be fetched (rate limited) or isn't a device page.
func (c *Client) Device(ctx context.Context, href string, columns *devices.ColumnSet) (devices.Record, error) {
	ctx, span := tracer.Start(ctx, "client:Device")
	defer span.End()
	span.SetAttributes(attribute.String("href", href))

	doc, err := c.fetch(ctx, href)
	if err != nil {
		return devices.Record{}, err
	}
	if doc == nil {
		return devices.Record{}, nil
	}

	record, err := c.opts.Markup.Device(ctx, doc, columns)
	if err != nil {
		span.RecordError(err)
		slog.WarnContext(ctx, "no device data on page", "url", href, "err", err)
		return devices.Record{}, nil
	}
	return record, nil
}
