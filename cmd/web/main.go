// Command web serves the listing analytics HTTP API until interrupted.
package main

import (
	"fmt"
	"os"

	"marketlens/internal/app"
)

func main() {
	if err := serve(); err != nil {
		fmt.Fprintln(os.Stderr, "web:", err)
		os.Exit(1)
	}
}

func serve() error {
	application, err := app.NewApplication()
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	return application.Run()
}
