package updater

import "esimcatalog/lib/telemetry"

var tracer = telemetry.Tracer("esimcatalog.internal.updater")
var meter = telemetry.Meter("esimcatalog.internal.updater")

var qualifiedCounter, _ = meter.Int64Counter(
	"updater.devices.qualified",
)
