package wiki

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/olgasafonova/mediawiki-mcp-server/internal/infra"
)

// Error codes for programmatic error handling
type ErrorCode string

const (
	CodePageNotFound    ErrorCode = "PAGE_NOT_FOUND"
	CodeRedirect        ErrorCode = "REDIRECT"
	CodeDisambiguation  ErrorCode = "DISAMBIGUATION"
	CodeCategoryTree    ErrorCode = "CATEGORY_TREE"
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	CodeTimeout         ErrorCode = "TIMEOUT"
	CodeGeoCoord        ErrorCode = "GEO_COORD"
	CodeRedirectLoop    ErrorCode = "REDIRECT_LOOP"
	CodeConsistency     ErrorCode = "CONSISTENCY"
	CodeMissingFeature  ErrorCode = "MISSING_EXTENSION"
	CodeLogin           ErrorCode = "LOGIN"
	CodeCircuitOpen     ErrorCode = "CIRCUIT_OPEN"
	CodeAPI             ErrorCode = "API_ERROR"
	CodeUnknown         ErrorCode = "UNKNOWN"
)

// Upstream error messages that map onto specific error kinds
var (
	timeoutMessages = []string{
		"HTTP request timed out.",
		"Pool queue is full",
	}
	geoMessages = []string{
		"Page coordinates unknown.",
		"One of the parameters gscoord, gspage, gsbbox is required",
		"Invalid coordinate provided",
	}
)

// PageNotFoundError indicates a title or page id that the wiki does not know
type PageNotFoundError struct {
	Title  string
	PageID int
}

func (e *PageNotFoundError) Error() string {
	if e.Title == "" && e.PageID != 0 {
		return fmt.Sprintf("page id %d does not match any pages; try another id", e.PageID)
	}
	return fmt.Sprintf("%q does not match any pages; try another query", e.Title)
}

// RedirectError is returned when a redirect is found but following redirects was disabled
type RedirectError struct {
	Title string
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("%q resulted in a redirect; enable redirects to follow it automatically", e.Title)
}

// DisambiguationCandidate is one entry of a disambiguation page
type DisambiguationCandidate struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// DisambiguationError is returned for disambiguation pages. Options holds the
// candidate link texts in page order.
type DisambiguationError struct {
	Title   string
	Options []string
	Details []DisambiguationCandidate
	URL     string
}

func (e *DisambiguationError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%q may refer to:", e.Title))
	for _, opt := range e.SortedOptions() {
		sb.WriteString("\n  ")
		sb.WriteString(opt)
	}
	return sb.String()
}

// SortedOptions returns the distinct candidate titles in lexical order
func (e *DisambiguationError) SortedOptions() []string {
	opts := slices.Clone(e.Options)
	slices.Sort(opts)
	return slices.Compact(opts)
}

// CategoryTreeError is returned when a category could not be fetched within the retry budget
type CategoryTreeError struct {
	Category string
	Err      error
}

func (e *CategoryTreeError) Error() string {
	return fmt.Sprintf("category %q could not be retrieved after repeated attempts: %v", e.Category, e.Err)
}

func (e *CategoryTreeError) Unwrap() error {
	return e.Err
}

// ValidationError represents an invalid argument with recovery guidance
type ValidationError struct {
	Field      string
	Value      string
	Message    string
	Suggestion string
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("invalid %s: %s", e.Field, e.Message))
	if e.Value != "" {
		displayValue := e.Value
		if len(displayValue) > 100 {
			displayValue = displayValue[:100] + "..."
		}
		sb.WriteString(fmt.Sprintf(" (got %q)", displayValue))
	}
	if e.Suggestion != "" {
		sb.WriteString("\n\nTo fix this:\n")
		sb.WriteString(e.Suggestion)
	}
	return sb.String()
}

// TimeoutError indicates the wiki or the connection to it timed out
type TimeoutError struct {
	Info string
	Err  error
}

func (e *TimeoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("wiki request timed out: %v", e.Err)
	}
	return "wiki request timed out: " + e.Info
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// APIError is a generic error envelope returned by the wiki
type APIError struct {
	Code string
	Info string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error [%s]: %s", e.Code, e.Info)
}

// GeoCoordError is returned for geographic queries the wiki rejected
type GeoCoordError struct {
	Info string
}

func (e *GeoCoordError) Error() string {
	return "geographic search failed: " + e.Info
}

// RedirectLoopError is returned when a redirect chain exceeds the configured hop limit
type RedirectLoopError struct {
	Title string
	Chain []string
}

func (e *RedirectLoopError) Error() string {
	return fmt.Sprintf("too many redirects resolving %q: %s", e.Title, strings.Join(e.Chain, " -> "))
}

// ConsistencyError indicates the wiki's redirect records contradict the request
type ConsistencyError struct {
	Requested string
	Recorded  string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("inconsistent redirect data: requested %q but the wiki reported %q", e.Requested, e.Recorded)
}

// MissingExtensionError is returned when an operation needs a wiki extension that is not installed
type MissingExtensionError struct {
	Extension string
	Operation string
}

func (e *MissingExtensionError) Error() string {
	return fmt.Sprintf("%s requires the %s extension, which this wiki does not have installed", e.Operation, e.Extension)
}

// LoginError indicates a failed bot password login
type LoginError struct {
	Username string
	Result   string
	Reason   string
}

func (e *LoginError) Error() string {
	msg := fmt.Sprintf("login failed for %s: %s", e.Username, e.Result)
	if e.Reason != "" {
		msg += " - " + e.Reason
	}
	return msg
}

// Code classifies err into an ErrorCode
func Code(err error) ErrorCode {
	var (
		notFound    *PageNotFoundError
		redirect    *RedirectError
		disambig    *DisambiguationError
		tree        *CategoryTreeError
		validation  *ValidationError
		timeout     *TimeoutError
		geo         *GeoCoordError
		loop        *RedirectLoopError
		consistency *ConsistencyError
		missing     *MissingExtensionError
		login       *LoginError
		circuit     *infra.ErrCircuitOpen
		api         *APIError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &tree):
		return CodeCategoryTree
	case errors.As(err, &notFound):
		return CodePageNotFound
	case errors.As(err, &redirect):
		return CodeRedirect
	case errors.As(err, &disambig):
		return CodeDisambiguation
	case errors.As(err, &validation):
		return CodeInvalidArgument
	case errors.As(err, &timeout):
		return CodeTimeout
	case errors.As(err, &geo):
		return CodeGeoCoord
	case errors.As(err, &loop):
		return CodeRedirectLoop
	case errors.As(err, &consistency):
		return CodeConsistency
	case errors.As(err, &missing):
		return CodeMissingFeature
	case errors.As(err, &login):
		return CodeLogin
	case errors.As(err, &circuit):
		return CodeCircuitOpen
	case errors.As(err, &api):
		return CodeAPI
	default:
		return CodeUnknown
	}
}

// errorFromEnvelope maps the wiki's error object onto an error kind
func errorFromEnvelope(code, info string) error {
	if slices.Contains(timeoutMessages, info) {
		return &TimeoutError{Info: info}
	}
	if slices.Contains(geoMessages, info) {
		return &GeoCoordError{Info: info}
	}
	return &APIError{Code: code, Info: info}
}
