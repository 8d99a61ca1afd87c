// Package api contains the request and response contracts of the marketlens
// HTTP API. Version v1 represents the current stable API version.
package api

import (
	"marketlens/pkg/contracts/domain"
)

// AnalysisQuery holds the query parameters shared by the analysis and
// export endpoints. Dates accept RFC 3339 or 2006-01-02; a date-only end
// covers the whole day.
type AnalysisQuery struct {
	Start       string `json:"start,omitempty" query:"start" validate:"omitempty,date"`
	End         string `json:"end,omitempty" query:"end" validate:"omitempty,date"`
	TopN        int    `json:"top_n,omitempty" query:"top_n" validate:"omitempty,min=1,max=50"`
	Seller      string `json:"seller,omitempty" query:"seller" validate:"omitempty,max=200"`
	OEM         string `json:"oem,omitempty" query:"oem" validate:"omitempty,max=200"`
	CompareTopN int    `json:"compare_top_n,omitempty" query:"compare_top_n" validate:"omitempty,min=1"`
}

// CompareQuery selects the metric sellers are ranked by.
type CompareQuery struct {
	AnalysisQuery
	Metric string `json:"metric" query:"metric" validate:"required,oneof=available_quantity health price visits"`
}

// ExportQuery names the report and view to export and the file format.
type ExportQuery struct {
	AnalysisQuery
	Report string `json:"report" param:"report" validate:"required,oneof=market seller competition tags"`
	View   string `json:"view,omitempty" param:"view" validate:"omitempty,max=64"`
	Format string `json:"format" param:"format" validate:"required,oneof=csv xlsx"`
}

// UploadResponse is returned after a listings file has been loaded.
type UploadResponse struct {
	File    domain.FileSummary `json:"file"`
	Session domain.SessionInfo `json:"session"`
}
