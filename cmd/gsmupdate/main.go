package main

import (
	"context"

	"esimcatalog/cmd/gsmupdate/commands"
	"esimcatalog/lib/serviceutil"
)

func main() {
	ctx, cancel := serviceutil.SignalContext(context.Background())
	defer cancel()
	commands.ExecuteContext(ctx)
}
