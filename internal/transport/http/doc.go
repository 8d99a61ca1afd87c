// Package http implements the HTTP handlers of the marketlens API. Handlers
// are a thin layer over services.AnalysisService: they bind and validate
// query parameters, call the service and render the result.
//
// # Routes
//
//	POST   /api/session/upload                 multipart "file", replaces the session
//	POST   /api/session/competitors            multipart "file", appended to the session
//	GET    /api/session                        session description
//	DELETE /api/session
//	GET    /api/session/options                seller and OEM pick lists
//	GET    /api/analysis/market
//	GET    /api/analysis/sellers/{seller}
//	GET    /api/analysis/oems/{oem}/competition
//	GET    /api/analysis/oems/{oem}/compare?metric=price
//	GET    /api/analysis/oems/{oem}/tags
//	GET    /api/export/{report}.xlsx
//	GET    /api/export/{report}/{view}.csv
//	GET    /api/health
//
// Analysis and export routes accept start, end, top_n, seller, oem and
// compare_top_n. Dates are RFC 3339 or 2006-01-02; a date-only end covers
// the whole day.
//
// # Error Handling
//
// Request-level failures are RFC 7807 problem documents written by
// errors.ErrorHandler:
//
//	{
//	    "type": "/errors/session/not-loaded",
//	    "title": "Not Found",
//	    "status": 404,
//	    "detail": "No listings file has been loaded",
//	    "instance": "/api/analysis/market",
//	    "trace_id": "..."
//	}
//
// A view that cannot be computed does not fail its report. It is returned
// with an error member describing why.
package http
