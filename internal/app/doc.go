// Package app wires the marketlens web service together: configuration,
// logging, OpenTelemetry, the analysis and health services, the chi router
// and the HTTP server.
//
// # Initialization Flow
//
//  1. Load configuration (defaults, config file, MARKETLENS_* environment)
//  2. Initialize logging and observability
//  3. Build the analyzer, file validator and services
//  4. Mount the handlers behind the middleware chain
//  5. Start the HTTP server and the runtime collector
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return application.Run()
//
// Run blocks until SIGINT or SIGTERM, then shuts the server down within
// the configured shutdown timeout and flushes telemetry. The package never
// calls os.Exit; errors are returned to main.
package app
