package services

import (
	"log/slog"

	"marketlens/internal/config"
	"marketlens/internal/dataprocessing"
	"marketlens/internal/exporter"
	"marketlens/internal/infrastructure"
	"marketlens/internal/validation"
)

// FromConfig builds the analysis service from the analysis and upload
// sections of cfg. metrics may be nil.
func FromConfig(cfg *config.Config, metrics *infrastructure.AnalyticsMetrics, logger *slog.Logger) *AnalysisService {
	ac := cfg.Analysis
	analyzer := dataprocessing.NewAnalyzer(logger, dataprocessing.AnalyzerConfig{
		DefaultTopN: ac.DefaultTopN,
		MaxTopN:     ac.MaxTopN,
		Tags: dataprocessing.TagClassifier{
			InstallmentMarkers: ac.InstallmentMarkers,
			CatalogMarkers:     ac.CatalogMarkers,
			NoneLabel:          ac.NoneLabel,
		},
	})

	files := validation.NewFileValidator(logger, cfg.Upload.MaxBytes, cfg.Upload.AllowedExtensions)

	return NewAnalysisService(analyzer, files, metrics, AnalysisServiceConfig{
		CompareTopN: ac.CompareTopN,
		Export:      ExportOptions(cfg),
	}, logger)
}

// ExportOptions returns the exporter options configured in cfg.
func ExportOptions(cfg *config.Config) exporter.Options {
	opts := exporter.DefaultOptions()
	if cfg.Analysis.CurrencySymbol != "" {
		opts.CurrencySymbol = cfg.Analysis.CurrencySymbol
	}
	return opts
}
