// Package config provides centralized configuration management for marketlens.
//
// # Configuration Sources
//
// Configuration is layered, later sources overriding earlier ones:
//
//  1. Default() values
//  2. A YAML file (MARKETLENS_CONFIG, or config.yaml / configs/config.yaml)
//  3. Environment variables
//
// # Environment Variables
//
// Variables follow the pattern MARKETLENS_<SECTION>_<FIELD>:
//
//	MARKETLENS_SERVER_PORT=8080
//	MARKETLENS_UPLOAD_MAX_BYTES=1048576000
//	MARKETLENS_ANALYSIS_DEFAULT_TOP_N=20
//	MARKETLENS_ANALYSIS_INSTALLMENT_MARKERS=cuota-simple-3,cuota-simple-6
//	MARKETLENS_PATHS_EXPORT_DIR=exports
//
// # Path Management
//
// Relative directories resolve against the executable location:
//
//	paths := cfg.GetPaths()
//	out := paths.ExportPath("market.xlsx")
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Tests use Default() directly.
package config
