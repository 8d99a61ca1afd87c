package config

import "time"

// Application constants
const (
	AppName = "marketlens"

	DefaultPort            = 8080
	DefaultAnalysisTimeout = 2 * time.Minute

	// Rate Limiting
	DefaultRateLimit = 20 // requests per second
	DefaultBurstSize = 40

	// Uploads. Matches the size cap of the spreadsheet tool the exports
	// come from.
	DefaultMaxUploadBytes int64 = 1000 << 20

	// Analysis
	DefaultTopN        = 20
	HardMaxTopN        = 50
	DefaultCompareTopN = 10
	DefaultNoneLabel   = "Ninguna"

	DefaultCurrencySymbol = "$"

	// File Paths (relative to executable)
	DefaultExportDir = "exports"
	DefaultLogsDir   = "logs"
	DefaultLogFile   = "logs/app.log"

	// Log Settings
	DefaultLogLevel = "info"

	// API Endpoints
	APIBasePath     = "/api"
	HealthEndpoint  = "/api/health"
	MetricsEndpoint = "/metrics"
)
