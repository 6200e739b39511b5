package core

import (
	"errors"
	"fmt"
)

// Parse failures. Every error returned by Parse wraps exactly one of these
// and can be tested with errors.Is.
var (
	ErrMalformedSection       = errors.New("malformed section")
	ErrInvalidDate            = errors.New("invalid date")
	ErrInvalidInteger         = errors.New("invalid integer")
	ErrBranchSizeMismatch     = errors.New("branch size mismatch")
	ErrBranchCountMismatch    = errors.New("branch count mismatch")
	ErrCatalogCountMismatch   = errors.New("catalog count mismatch")
	ErrCatalogEntryMalformed  = errors.New("catalog entry malformed")
	ErrTimeSeriesTruncated    = errors.New("time series truncated")
	ErrUnknownBranchReference = errors.New("unknown branch reference")
	ErrSeriesShapeMismatch    = errors.New("series shape mismatch")
)

// ParseError locates a failure within the input.
type ParseError struct {
	Section SectionKind
	Line    int // 1-based line of the section label; 0 when not tied to one line
	Err     error
	Detail  string
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("ppl: %s: %v", e.Section, e.Err)
	if e.Line > 0 {
		msg = fmt.Sprintf("ppl: %s (line %d): %v", e.Section, e.Line, e.Err)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

func newParseError(kind SectionKind, line int, err error, format string, args ...any) *ParseError {
	return &ParseError{
		Section: kind,
		Line:    line,
		Err:     err,
		Detail:  fmt.Sprintf(format, args...),
	}
}

// ErrorKind returns a short stable label for the sentinel wrapped by err,
// suitable for metric labels. Unknown errors yield "internal".
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrMalformedSection):
		return "malformed_section"
	case errors.Is(err, ErrInvalidDate):
		return "invalid_date"
	case errors.Is(err, ErrInvalidInteger):
		return "invalid_integer"
	case errors.Is(err, ErrBranchSizeMismatch):
		return "branch_size_mismatch"
	case errors.Is(err, ErrBranchCountMismatch):
		return "branch_count_mismatch"
	case errors.Is(err, ErrCatalogCountMismatch):
		return "catalog_count_mismatch"
	case errors.Is(err, ErrCatalogEntryMalformed):
		return "catalog_entry_malformed"
	case errors.Is(err, ErrTimeSeriesTruncated):
		return "time_series_truncated"
	case errors.Is(err, ErrUnknownBranchReference):
		return "unknown_branch_reference"
	case errors.Is(err, ErrSeriesShapeMismatch):
		return "series_shape_mismatch"
	default:
		return "internal"
	}
}

// IsParseError reports whether err is one of the parse failures above.
func IsParseError(err error) bool {
	k := ErrorKind(err)
	return k != "none" && k != "internal"
}
