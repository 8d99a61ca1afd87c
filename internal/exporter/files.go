package exporter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"marketlens/internal/dataprocessing"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" and "xlsx" in any case.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimPrefix(s, "."))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// WriteTable renders a single table in the given format.
func WriteTable(w io.Writer, name string, t *dataprocessing.Table, f Format, opts Options) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, t, opts)
	case FormatXLSX:
		return WriteXLSX(w, []Sheet{{Name: name, Table: t}}, opts)
	}
	return fmt.Errorf("unsupported export format %q", f)
}

// FileExporter writes report views into a directory.
type FileExporter struct {
	dir    string
	opts   Options
	logger *slog.Logger
}

// NewFileExporter creates an exporter rooted at dir.
func NewFileExporter(dir string, opts Options, logger *slog.Logger) *FileExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileExporter{dir: dir, opts: opts, logger: logger}
}

// ExportReport writes one CSV per computed view and, for xlsx, a single
// workbook named after the report holding every view. Views that failed
// are skipped. Files are written concurrently; the first error cancels the
// rest. It returns the written paths.
func (e *FileExporter) ExportReport(ctx context.Context, r *dataprocessing.Report, formats ...Format) ([]string, error) {
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	var sheets []Sheet
	for _, v := range r.Views {
		if v.Table != nil {
			sheets = append(sheets, Sheet{Name: v.Name, Table: v.Table})
		}
	}
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s report has no computed views", r.Kind)
	}

	type job struct {
		path  string
		write func(*os.File) error
	}
	var jobs []job
	for _, f := range formats {
		switch f {
		case FormatCSV:
			for _, s := range sheets {
				s := s
				jobs = append(jobs, job{
					path:  filepath.Join(e.dir, r.Kind+"_"+s.Name+".csv"),
					write: func(out *os.File) error { return WriteCSV(out, s.Table, e.opts) },
				})
			}
		case FormatXLSX:
			jobs = append(jobs, job{
				path:  filepath.Join(e.dir, r.Kind+".xlsx"),
				write: func(out *os.File) error { return WriteXLSX(out, sheets, e.opts) },
			})
		default:
			return nil, fmt.Errorf("unsupported export format %q", f)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return writeFile(j.path, j.write)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	paths := make([]string, len(jobs))
	for i, j := range jobs {
		paths[i] = j.path
	}
	e.logger.InfoContext(ctx, "report exported",
		slog.String("report", r.Kind),
		slog.String("dir", e.dir),
		slog.Int("files", len(paths)))
	return paths, nil
}

func writeFile(path string, write func(*os.File) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := write(file); err != nil {
		file.Close()
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return file.Close()
}
