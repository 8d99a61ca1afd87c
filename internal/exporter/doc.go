// Package exporter writes analysis tables to CSV and xlsx.
//
// This package contains three main components:
//
// CSV: WriteCSV renders a table to any io.Writer, optionally with a UTF-8
// BOM for Excel compatibility. Cells are written with full precision so an
// export read back through dataprocessing.ReadCSV yields the same table.
//
// XLSX: WriteXLSX streams one sheet per table using excelize.
//
// FileExporter: writes every view of a report into an output directory,
// one file per view and format, concurrently.
//
// Currency columns are rendered as a fixed two-decimal amount prefixed with
// the configured symbol ("$105.00"); that formatting happens only here.
//
// Example usage:
//
//	var buf bytes.Buffer
//	err := exporter.WriteCSV(&buf, table, exporter.Options{BOMPrefix: true})
//
//	files := exporter.NewFileExporter("out", exporter.DefaultOptions(), logger)
//	paths, err := files.ExportReport(ctx, report, exporter.FormatCSV, exporter.FormatXLSX)
package exporter
