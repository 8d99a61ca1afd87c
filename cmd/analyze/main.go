// Command analyze runs the listing analyses over exported files and writes
// the reports as CSV and XLSX without starting the web server.
//
//	analyze -in listings.xlsx [-competitors others.xlsx] [-seller ACME] [-oem 1001]
//	        [-start 2024-01-01] [-end 2024-01-31] [-top 20] [-metric visits]
//	        [-format csv,xlsx] [-out dir] [-config config.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"marketlens/internal/config"
	"marketlens/internal/dataprocessing"
	"marketlens/internal/exporter"
	"marketlens/internal/infrastructure"
	"marketlens/internal/services"
	"marketlens/internal/validation"
	"marketlens/pkg/contracts"
	"marketlens/pkg/contracts/domain"
)

type options struct {
	in          string
	competitors string
	seller      string
	oem         string
	start       string
	end         string
	metric      string
	formats     string
	out         string
	configPath  string
	version     bool
	top         int
	compareTop  int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}
	if opts.version {
		fmt.Println(contracts.FullVersionString())
		return
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	// stdout carries the run summary
	cfg.Logging.Output = "stderr"
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	if err := run(ctx, opts, cfg, os.Stdout, logger); err != nil {
		logger.Error("Analysis failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.in, "in", "", "listings export (.xlsx or .csv)")
	fs.StringVar(&o.competitors, "competitors", "", "competitor export appended under the listings")
	fs.StringVar(&o.seller, "seller", "", "seller for the strategy report")
	fs.StringVar(&o.oem, "oem", "", "OEM for the competition and tag reports")
	fs.StringVar(&o.start, "start", "", "first record date (inclusive)")
	fs.StringVar(&o.end, "end", "", "last record date (inclusive)")
	fs.StringVar(&o.metric, "metric", "", "metric sellers of -oem are compared by")
	fs.StringVar(&o.formats, "format", "csv,xlsx", "comma separated output formats")
	fs.StringVar(&o.out, "out", "", "output directory (defaults to the configured export directory)")
	fs.StringVar(&o.configPath, "config", "", "config file")
	fs.BoolVar(&o.version, "version", false, "print version and exit")
	fs.IntVar(&o.top, "top", 0, "rows per ranking (defaults to the configured top N)")
	fs.IntVar(&o.compareTop, "compare-top", 0, "sellers per comparison")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.version {
		return o, nil
	}
	if o.in == "" {
		fmt.Fprintln(stderr, "-in is required")
		fs.Usage()
		return o, errors.New("missing -in")
	}
	return o, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func run(ctx context.Context, o options, cfg *config.Config, stdout io.Writer, logger *slog.Logger) error {
	ctx = infrastructure.EnsureTraceID(ctx)
	logger = infrastructure.WithComponent(logger, "analyze")
	logger.InfoContext(ctx, "Analysis run started",
		slog.String("input", o.in),
		slog.String("competitors", o.competitors),
		slog.String("seller", o.seller),
		slog.String("oem", o.oem))

	formats, err := parseFormats(o.formats)
	if err != nil {
		return err
	}
	rng, err := dataprocessing.ParseRange(o.start, o.end)
	if err != nil {
		return err
	}
	params := dataprocessing.Params{
		Range:       rng,
		TopN:        o.top,
		Seller:      o.seller,
		OEM:         o.oem,
		CompareTopN: o.compareTop,
	}

	outDir := o.out
	if outDir == "" {
		outDir = cfg.GetPaths().ExportDir
	}

	files := validation.NewFileValidator(logger, cfg.Upload.MaxBytes, cfg.Upload.AllowedExtensions)
	for _, path := range []string{o.in, o.competitors} {
		if path == "" {
			continue
		}
		if err := files.ValidateListingsFile(path); err != nil {
			return err
		}
	}
	if err := files.ValidateOutputDirectory(outDir); err != nil {
		return err
	}

	service := services.FromConfig(cfg, nil, logger)
	_, info, err := loadFile(ctx, o.in, service.LoadPrimary)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Loaded %d listings from %s\n", info.Rows, filepath.Base(o.in))
	if o.competitors != "" {
		_, info, err = loadFile(ctx, o.competitors, service.AppendCompetitors)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Appended competitors, %d listings in total\n", info.Rows)
	}

	kinds := []string{dataprocessing.ReportMarket}
	if o.seller != "" {
		kinds = append(kinds, dataprocessing.ReportSeller)
	}
	if o.oem != "" {
		kinds = append(kinds, dataprocessing.ReportCompetition, dataprocessing.ReportTags)
	}

	fileExporter := exporter.NewFileExporter(outDir, services.ExportOptions(cfg), logger)
	for _, kind := range kinds {
		report, err := service.Report(ctx, kind, params)
		if err != nil {
			return fmt.Errorf("%s report: %w", kind, err)
		}
		for _, v := range report.Failed() {
			logger.WarnContext(ctx, "View skipped",
				slog.String("report", kind),
				slog.String("view", v.Name),
				slog.String("error", v.Error.Message))
			fmt.Fprintf(stdout, "Skipped %s/%s: %s\n", kind, v.Name, v.Error.Message)
		}
		if err := export(ctx, fileExporter, report, formats, stdout); err != nil {
			return err
		}
	}

	if o.oem != "" && o.metric != "" {
		cmp, err := service.Compare(ctx, params, o.metric)
		if err != nil {
			return fmt.Errorf("compare %s: %w", o.metric, err)
		}
		if cmp.Single {
			fmt.Fprintf(stdout, "Only one seller lists OEM %s, nothing to compare\n", o.oem)
			return nil
		}
		report := &dataprocessing.Report{
			Kind:  "compare",
			OEM:   o.oem,
			Views: []dataprocessing.View{{Name: o.metric, Table: cmp.Table}},
		}
		if err := export(ctx, fileExporter, report, formats, stdout); err != nil {
			return err
		}
	}
	return nil
}

type loadFunc func(context.Context, string, io.Reader, int64) (domain.FileSummary, domain.SessionInfo, error)

func loadFile(ctx context.Context, path string, load loadFunc) (domain.FileSummary, domain.SessionInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.FileSummary{}, domain.SessionInfo{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		return domain.FileSummary{}, domain.SessionInfo{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return load(ctx, filepath.Base(path), f, stat.Size())
}

func export(ctx context.Context, e *exporter.FileExporter, report *dataprocessing.Report, formats []exporter.Format, stdout io.Writer) error {
	paths, err := e.ExportReport(ctx, report, formats...)
	if err != nil {
		return fmt.Errorf("export %s: %w", report.Kind, err)
	}
	for _, p := range paths {
		fmt.Fprintf(stdout, "Wrote %s\n", p)
	}
	return nil
}

func parseFormats(s string) ([]exporter.Format, error) {
	var formats []exporter.Format
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f, err := exporter.ParseFormat(part)
		if err != nil {
			return nil, err
		}
		formats = append(formats, f)
	}
	if len(formats) == 0 {
		return nil, errors.New("no output format given")
	}
	return formats, nil
}
