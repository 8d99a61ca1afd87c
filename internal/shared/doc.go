// Package shared holds helpers used across the marketlens packages that do
// not belong to any single layer.
//
// # Test Utilities
//
// The testutil subpackage provides:
//
//   - BufferedSlogHandler, a slog handler that captures records for assertions
//   - listing fixtures written as xlsx workbooks or CSV files
//
// Example usage:
//
//	func TestUpload(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    data := testutil.ListingsWorkbook(t, testutil.ListingRecords)
//	    // ...
//	    testutil.AssertNoErrors(t, logs)
//	}
package shared
