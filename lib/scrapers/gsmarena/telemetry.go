package gsmarena

import (
	"esimcatalog/lib/telemetry"
)

var tracer = telemetry.Tracer("esimcatalog.lib.scrapers.gsmarena")
var meter = telemetry.Meter("esimcatalog.lib.scrapers.gsmarena")

var requestCounter, _ = meter.Int64Counter(
	"gsmarena.requests",
)
var rateLimitCounter, _ = meter.Int64Counter(
	"gsmarena.rate_limited",
)
