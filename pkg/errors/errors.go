package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryFile           ErrorCategory = "file"
	CategoryDocument       ErrorCategory = "document"
	CategoryExtraction     ErrorCategory = "extraction"
	CategoryParse          ErrorCategory = "parse"
	CategoryValidation     ErrorCategory = "validation"
	CategoryIdempotency    ErrorCategory = "idempotency"
	CategoryConfiguration  ErrorCategory = "configuration"
	CategoryReconciliation ErrorCategory = "reconciliation"
	CategoryStorage        ErrorCategory = "storage"
	CategoryInternal       ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// File errors
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"
	CodeDirectoryError ErrorCode = "directory_error"

	// Document errors
	CodeUnrecognizedDocument ErrorCode = "unrecognized_document"
	CodeNotATransaction      ErrorCode = "not_a_transaction"

	// Extraction errors
	CodeExtractionFailure ErrorCode = "extraction_failure"
	CodeMissingAnchor     ErrorCode = "missing_anchor"

	// Parse errors
	CodeRowParseSkipped ErrorCode = "row_parse_skipped"
	CodeMalformedLayout ErrorCode = "malformed_layout"

	// Validation errors
	CodeAmbiguousNumberFormat  ErrorCode = "ambiguous_number_format"
	CodeInvalidNumber          ErrorCode = "invalid_number"
	CodeUnrecognizedDateFormat ErrorCode = "unrecognized_date_format"
	CodeMissingField           ErrorCode = "missing_field"
	CodeOutOfRange             ErrorCode = "out_of_range"

	// Idempotency errors
	CodeAlreadyProcessed ErrorCode = "already_processed"
	CodeDuplicateMessage ErrorCode = "duplicate_message"

	// Configuration errors
	CodeInvalidConfig  ErrorCode = "invalid_config"
	CodeMissingConfig  ErrorCode = "missing_config"
	CodeConfigConflict ErrorCode = "config_conflict"

	// Reconciliation errors
	CodeMatchingFailed   ErrorCode = "matching_failed"
	CodeDataInconsistent ErrorCode = "data_inconsistent"

	// Storage errors
	CodeStorageUnavailable ErrorCode = "storage_unavailable"
	CodeStorageWrite       ErrorCode = "storage_write"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// Sentinels for errors.Is comparisons. Matching is by code only.
var (
	ErrAlreadyProcessed     = &ReconcilerError{Category: CategoryIdempotency, Code: CodeAlreadyProcessed, Message: "document already processed"}
	ErrDuplicateMessage     = &ReconcilerError{Category: CategoryIdempotency, Code: CodeDuplicateMessage, Message: "message already ingested"}
	ErrNotATransaction      = &ReconcilerError{Category: CategoryDocument, Code: CodeNotATransaction, Message: "document is informational"}
	ErrUnrecognizedDocument = &ReconcilerError{Category: CategoryDocument, Code: CodeUnrecognizedDocument, Message: "no extractor recognizes the document"}
)

// ReconcilerError is the base error type for all application errors
type ReconcilerError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *ReconcilerError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", msg, e.Suggestion)
	}
	return msg
}

// Unwrap returns the underlying cause error
func (e *ReconcilerError) Unwrap() error {
	return e.Cause
}

// Is reports whether target carries the same error code.
func (e *ReconcilerError) Is(target error) bool {
	t, ok := target.(*ReconcilerError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// GetExitCode returns an appropriate exit code for the error
func (e *ReconcilerError) GetExitCode() int {
	switch e.Category {
	case CategoryIdempotency:
		return 0
	case CategoryFile:
		return 2
	case CategoryDocument, CategoryExtraction, CategoryParse, CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryReconciliation, CategoryInternal:
		return 5
	case CategoryStorage:
		return 6
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *ReconcilerError) WithContext(key string, value interface{}) *ReconcilerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *ReconcilerError) WithSuggestion(suggestion string) *ReconcilerError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ReconcilerError
func New(category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with ReconcilerError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func build(category ErrorCategory, code ErrorCode, message string, err error) *ReconcilerError {
	if err != nil {
		return Wrap(err, category, code, message)
	}
	return New(category, code, message)
}

// FileError creates a file-related error
func FileError(code ErrorCode, path string, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check if the file path is correct and the file exists"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied accessing file: %s", path)
		suggestion = "check file permissions and ensure you have read access"
	case CodeDirectoryError:
		message = fmt.Sprintf("directory error: %s", path)
		suggestion = "ensure the directory exists and is accessible"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	return build(CategoryFile, code, message, err).
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// DocumentError reports a document that no extractor or parser claims,
// or one that is informational only.
func DocumentError(code ErrorCode, documentID string, err error) *ReconcilerError {
	var message string

	switch code {
	case CodeUnrecognizedDocument:
		message = fmt.Sprintf("unrecognized document %s", documentID)
	case CodeNotATransaction:
		message = fmt.Sprintf("document %s is informational, not a transaction", documentID)
	default:
		message = fmt.Sprintf("document error in %s", documentID)
	}

	return build(CategoryDocument, code, message, err).
		WithContext("document_id", documentID)
}

// ExtractionError reports a claimed document missing a mandatory field.
// Normalizer failures travel as the cause; a nil cause means the anchor
// phrase was absent.
func ExtractionError(extractor, documentID, field string, err error) *ReconcilerError {
	if err == nil {
		err = New(CategoryExtraction, CodeMissingAnchor, fmt.Sprintf("anchor %q not found", field))
	}
	message := fmt.Sprintf("%s extraction failed for document %s: field %q", extractor, documentID, field)

	return Wrap(err, CategoryExtraction, CodeExtractionFailure, message).
		WithContext("extractor", extractor).
		WithContext("document_id", documentID).
		WithContext("field", field)
}

// NumberError creates an amount-parsing error
func NumberError(code ErrorCode, token string, reason string) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeAmbiguousNumberFormat:
		message = fmt.Sprintf("ambiguous number format %q: %s", token, reason)
		suggestion = "supply a locale hint for this document format"
	default:
		code = CodeInvalidNumber
		message = fmt.Sprintf("invalid number %q: %s", token, reason)
	}

	result := New(CategoryValidation, code, message).WithContext("token", token)
	if suggestion != "" {
		result = result.WithSuggestion(suggestion)
	}
	return result
}

// DateError creates a date-parsing error
func DateError(token string) *ReconcilerError {
	return New(CategoryValidation, CodeUnrecognizedDateFormat,
		fmt.Sprintf("unrecognized date format %q", token)).
		WithContext("token", token)
}

// ValidationError creates a validation-related error
func ValidationError(code ErrorCode, field string, value interface{}, err error) *ReconcilerError {
	var message string

	switch code {
	case CodeMissingField:
		message = fmt.Sprintf("required field '%s' is missing or empty", field)
	case CodeOutOfRange:
		message = fmt.Sprintf("value out of range in field '%s': %v", field, value)
	default:
		message = fmt.Sprintf("validation error in field '%s': %v", field, value)
	}

	return build(CategoryValidation, code, message, err).
		WithContext("field", field).
		WithContext("value", value)
}

// IdempotencyError reports a repeated statement or message.
func IdempotencyError(code ErrorCode, profileID, key string) *ReconcilerError {
	var message string

	switch code {
	case CodeAlreadyProcessed:
		message = fmt.Sprintf("statement %s already processed for profile %s", shortKey(key), profileID)
	case CodeDuplicateMessage:
		message = fmt.Sprintf("message %s already ingested for profile %s", key, profileID)
	default:
		message = fmt.Sprintf("idempotency conflict on %s for profile %s", key, profileID)
	}

	return New(CategoryIdempotency, code, message).
		WithContext("profile_id", profileID).
		WithContext("key", key)
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this configuration setting or use a config file"
	case CodeConfigConflict:
		message = fmt.Sprintf("configuration conflict with setting '%s': %v", setting, value)
		suggestion = "resolve the conflicting settings or use default values"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	return build(CategoryConfiguration, code, message, err).
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// ReconciliationError creates a reconciliation-related error
func ReconciliationError(code ErrorCode, operation string, err error) *ReconcilerError {
	var message string

	switch code {
	case CodeMatchingFailed:
		message = fmt.Sprintf("matching failed during %s", operation)
	case CodeDataInconsistent:
		message = fmt.Sprintf("data inconsistency detected during %s", operation)
	default:
		message = fmt.Sprintf("reconciliation error during %s", operation)
	}

	return build(CategoryReconciliation, code, message, err).
		WithContext("operation", operation)
}

// StorageError wraps failures at the persistence boundary
func StorageError(code ErrorCode, operation string, err error) *ReconcilerError {
	return build(CategoryStorage, code, fmt.Sprintf("storage %s failed", operation), err).
		WithContext("operation", operation)
}

// InternalError creates an internal error
func InternalError(code ErrorCode, operation string, err error) *ReconcilerError {
	return build(CategoryInternal, code, fmt.Sprintf("unexpected error during %s", operation), err).
		WithSuggestion("this is likely a bug - please report it with the error details").
		WithContext("operation", operation)
}

// ErrorSummary provides a summary of multiple errors
type ErrorSummary struct {
	Total        int                   `json:"total"`
	ByCategory   map[ErrorCategory]int `json:"by_category"`
	ByCode       map[ErrorCode]int     `json:"by_code"`
	Errors       []*ReconcilerError    `json:"errors"`
	SampleErrors []*ReconcilerError    `json:"sample_errors,omitempty"`
}

// NewErrorSummary creates a new error summary
func NewErrorSummary(errs []*ReconcilerError) *ErrorSummary {
	summary := &ErrorSummary{
		Total:      len(errs),
		ByCategory: make(map[ErrorCategory]int),
		ByCode:     make(map[ErrorCode]int),
		Errors:     errs,
	}
	if summary.Errors == nil {
		summary.Errors = []*ReconcilerError{}
	}

	for _, err := range errs {
		summary.ByCategory[err.Category]++
		summary.ByCode[err.Code]++
	}

	maxSamples := 5
	if len(errs) > maxSamples {
		summary.SampleErrors = errs[:maxSamples]
	} else {
		summary.SampleErrors = errs
	}

	return summary
}

// Error returns a formatted error message for the summary
func (es *ErrorSummary) Error() string {
	if es.Total == 0 {
		return "no errors"
	}

	if es.Total == 1 {
		return es.Errors[0].Error()
	}

	var categories []string
	for category, count := range es.ByCategory {
		categories = append(categories, fmt.Sprintf("%s: %d", category, count))
	}

	return fmt.Sprintf("%d errors occurred (%s)", es.Total, strings.Join(categories, ", "))
}

// HasCategory checks if the summary contains errors of the given category
func (es *ErrorSummary) HasCategory(category ErrorCategory) bool {
	return es.ByCategory[category] > 0
}

// HasCode checks if the summary contains errors with the given code
func (es *ErrorSummary) HasCode(code ErrorCode) bool {
	return es.ByCode[code] > 0
}

// GetExitCode returns the highest priority exit code from all errors
func (es *ErrorSummary) GetExitCode() int {
	if es.Total == 0 {
		return 0
	}

	maxCode := 1
	for _, err := range es.Errors {
		if code := err.GetExitCode(); code > maxCode {
			maxCode = code
		}
	}

	return maxCode
}

// AsReconcilerError extracts a ReconcilerError from an error chain
func AsReconcilerError(err error) (*ReconcilerError, bool) {
	var reconcilerErr *ReconcilerError
	if errors.As(err, &reconcilerErr) {
		return reconcilerErr, true
	}
	return nil, false
}

// CodeOf returns the code of the outermost ReconcilerError in the chain.
func CodeOf(err error) ErrorCode {
	if re, ok := AsReconcilerError(err); ok {
		return re.Code
	}
	return ""
}

// HasCode reports whether any ReconcilerError in the chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		switch e := err.(type) {
		case *ReconcilerError:
			if e.Code == code {
				return true
			}
		case *RowError:
			if e.ReconcilerError != nil && e.Code == code {
				return true
			}
		}
		err = errors.Unwrap(err)
	}
	return false
}

// WrapIfNeeded wraps an error if it's not already a ReconcilerError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	if reconcilerErr, ok := AsReconcilerError(err); ok {
		return reconcilerErr
	}

	return Wrap(err, category, code, message)
}
