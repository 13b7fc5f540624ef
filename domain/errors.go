package domain

import "errors"

var (
	// ErrNotFound signals that a remote entity genuinely does not exist
	// (HTTP 404). Lookups return it immediately; it must never be retried.
	ErrNotFound = errors.New("entity not found")

	// ErrUnknownReportType is returned for report-type names outside the
	// closed enumeration.
	ErrUnknownReportType = errors.New("unknown report type")

	// ErrNoReportTypes is returned when a report-type list resolves empty.
	ErrNoReportTypes = errors.New("no report types requested")
)
