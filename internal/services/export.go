package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"marketlens/internal/dataprocessing"
	"marketlens/internal/exporter"
)

// Export is a rendered download.
type Export struct {
	Filename string
	Format   exporter.Format
	Data     []byte
}

// ContentType returns the MIME type of the download.
func (e *Export) ContentType() string { return e.Format.ContentType() }

// Export renders a report for download. CSV carries a single view and
// requires view; XLSX carries every computed view of the report, one sheet
// each, or only view when it is given. A view that failed reports its own
// error.
func (s *AnalysisService) Export(ctx context.Context, kind, view string, format exporter.Format, p dataprocessing.Params) (*Export, error) {
	report, err := s.Report(ctx, kind, p)
	if err != nil {
		return nil, err
	}

	var sheets []exporter.Sheet
	if view != "" {
		v, ok := report.View(view)
		if !ok {
			return nil, fmt.Errorf("%s/%s: %w", kind, view, ErrViewNotFound)
		}
		if v.Err() != nil {
			return nil, v.Err()
		}
		sheets = append(sheets, exporter.Sheet{Name: v.Name, Table: v.Table})
	} else {
		if format == exporter.FormatCSV {
			return nil, fmt.Errorf("csv export of %s needs a view: %w", kind, ErrViewNotFound)
		}
		for _, v := range report.Views {
			if v.Table != nil {
				sheets = append(sheets, exporter.Sheet{Name: v.Name, Table: v.Table})
			}
		}
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%s report: %w", kind, dataprocessing.ErrEmptyResult)
		}
	}

	var buf bytes.Buffer
	switch format {
	case exporter.FormatCSV:
		err = exporter.WriteCSV(&buf, sheets[0].Table, s.cfg.Export)
	case exporter.FormatXLSX:
		err = exporter.WriteXLSX(&buf, sheets, s.cfg.Export)
	default:
		err = fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", kind, err)
	}

	name := kind
	if view != "" {
		name += "_" + view
	}
	out := &Export{Filename: name + "." + string(format), Format: format, Data: buf.Bytes()}

	s.metrics.RecordExport(ctx, string(format))
	s.logger.InfoContext(ctx, "report exported",
		slog.String("report", kind),
		slog.String("view", view),
		slog.String("format", string(format)),
		slog.Int("sheets", len(sheets)),
		slog.Int("bytes", len(out.Data)))
	return out, nil
}
