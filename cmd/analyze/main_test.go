package main

import (
	"bytes"
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketlens/internal/config"
	"marketlens/internal/dataprocessing"
	"marketlens/internal/services"
	"marketlens/internal/shared/testutil"
)

func runAnalyze(t *testing.T, o options) (string, error) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	var stdout bytes.Buffer
	err := run(context.Background(), o, config.Default(), &stdout, logger)
	return stdout.String(), err
}

func TestParseFlags(t *testing.T) {
	o, err := parseFlags([]string{"-in", "a.xlsx", "-oem", "1001", "-top", "5", "-format", "csv"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "a.xlsx", o.in)
	assert.Equal(t, "1001", o.oem)
	assert.Equal(t, 5, o.top)
	assert.Equal(t, "csv", o.formats)

	_, err = parseFlags(nil, io.Discard)
	assert.Error(t, err)

	o, err = parseFlags([]string{"-version"}, io.Discard)
	require.NoError(t, err, "-version needs no input")
	assert.True(t, o.version)

	_, err = parseFlags([]string{"-h"}, io.Discard)
	assert.ErrorIs(t, err, flag.ErrHelp)
}

func TestParseFormats(t *testing.T) {
	formats, err := parseFormats("csv, XLSX")
	require.NoError(t, err)
	assert.Len(t, formats, 2)

	_, err = parseFormats("csv,pdf")
	assert.Error(t, err)

	_, err = parseFormats(" , ")
	assert.Error(t, err)
}

func TestRun_AllReports(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	in := testutil.WriteListingsFile(t, dir, "listings.xlsx", testutil.ListingRecords)
	competitors := testutil.WriteListingsFile(t, dir, "competitors.csv", testutil.CompetitorRecords)

	stdout, err := runAnalyze(t, options{
		in:          in,
		competitors: competitors,
		seller:      "ACME",
		oem:         "1001",
		metric:      "visits",
		formats:     "csv,xlsx",
		out:         out,
	})
	require.NoError(t, err)

	assert.Contains(t, stdout, "Loaded 4 listings from listings.xlsx")
	assert.Contains(t, stdout, "Appended competitors, 5 listings in total")

	for _, name := range []string{
		"market.xlsx",
		"market_top_sellers_by_visits.csv",
		"seller.xlsx",
		"seller_top_titles_by_visits.csv",
		"competition.xlsx",
		"competition_price_by_seller.csv",
		"tags.xlsx",
		"tags_installment_tiers.csv",
		"compare.xlsx",
		"compare_visits.csv",
	} {
		assert.FileExists(t, filepath.Join(out, name))
		assert.Contains(t, stdout, name)
	}

	data, err := os.ReadFile(filepath.Join(out, "compare_visits.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4, "header plus three sellers")
	assert.Contains(t, lines[1], "DELTA")
}

func TestRun_SingleSellerComparison(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteListingsFile(t, dir, "listings.csv", testutil.ListingRecords)

	stdout, err := runAnalyze(t, options{
		in:      in,
		oem:     "1003",
		metric:  "price",
		formats: "csv",
		out:     dir,
	})
	require.NoError(t, err)
	assert.Contains(t, stdout, "Only one seller lists OEM 1003")
	assert.NoFileExists(t, filepath.Join(dir, "compare_price.csv"))
}

func TestRun_DateRange(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteListingsFile(t, dir, "listings.csv", testutil.ListingRecords)

	_, err := runAnalyze(t, options{in: in, start: "2024-01-12", end: "2024-01-12", formats: "csv", out: dir})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "market_top_sellers_by_visits.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "GAMMA")
	assert.NotContains(t, string(data), "ACME")
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteListingsFile(t, dir, "listings.csv", testutil.ListingRecords)
	empty := testutil.WriteListingsFile(t, dir, "empty.csv", nil)

	tests := []struct {
		name    string
		opts    options
		wantErr error
	}{
		{name: "missing file", opts: options{in: filepath.Join(dir, "nope.xlsx"), formats: "csv"}},
		{name: "bad date", opts: options{in: in, start: "someday", formats: "csv"}, wantErr: dataprocessing.ErrInvalidParameter},
		{name: "bad format", opts: options{in: in, formats: "pdf"}},
		{name: "header only", opts: options{in: empty, formats: "csv"}, wantErr: services.ErrEmptyFile},
		{name: "range without data", opts: options{in: in, start: "2030-01-01", formats: "csv"}, wantErr: dataprocessing.ErrEmptyResult},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.out = filepath.Join(dir, "out")
			_, err := runAnalyze(t, tt.opts)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
