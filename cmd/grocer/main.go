// Command grocer is the grocery store console: a command line client of the
// REST API and the JSON server for the browser UI.
package main

import (
	"context"

	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		return newRootCmd(lg, m).ExecuteContext(ctx)
	})
}
