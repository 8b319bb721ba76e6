package main

import (
	"log/slog"
	"os"

	demo "github.com/km-arc/arc/app"
	"github.com/km-arc/arc/framework/app"
)

func main() {
	application := app.New() // loads .env automatically
	application.Boot()

	demo.ConfigureKernel(application, application.Kernel())
	demo.RegisterRoutes(application, application.Router())

	if err := application.Run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
