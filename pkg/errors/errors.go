package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeTransport represents network failures while fetching a results page
	ErrorTypeTransport ErrorType = "transport"
	// ErrorTypeParsing represents HTML parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeInsufficientTokens represents date text with too few tokens
	ErrorTypeInsufficientTokens ErrorType = "insufficient_tokens"
	// ErrorTypeDateFormat represents a reassembled date that does not parse
	ErrorTypeDateFormat ErrorType = "date_format"
	// ErrorTypeRowSkipped represents a row without exactly 5 numbers and 2 stars
	ErrorTypeRowSkipped ErrorType = "row_skipped"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeStorage represents persistence errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeUnknown is reported by TypeOf for errors outside this taxonomy
	ErrorTypeUnknown ErrorType = "unknown"
)

// DrawError represents an error raised while collecting or storing draws
type DrawError struct {
	Type    ErrorType
	Source  string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *DrawError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Source, e.Message)
}

// Unwrap returns the underlying error
func (e *DrawError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *DrawError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeTransport, ErrorTypeStorage:
		return true
	default:
		return false
	}
}

// New creates a new DrawError
func New(errType ErrorType, source, message string, err error) *DrawError {
	return &DrawError{
		Type:    errType,
		Source:  source,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewTransport creates a new transport error
func NewTransport(source, message string, err error) *DrawError {
	return New(ErrorTypeTransport, source, message, err)
}

// NewParsing creates a new parsing error
func NewParsing(source, message string, err error) *DrawError {
	return New(ErrorTypeParsing, source, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(source string, duration time.Duration) *DrawError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, source, message, nil)
}

// NewStorage creates a new storage error
func NewStorage(source, message string, err error) *DrawError {
	return New(ErrorTypeStorage, source, message, err)
}

// NewCache creates a new cache error
func NewCache(source, message string, err error) *DrawError {
	return New(ErrorTypeCache, source, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(source, message string, err error) *DrawError {
	return New(ErrorTypePublisher, source, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *DrawError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// Typed is implemented by errors that classify themselves without being a DrawError
type Typed interface {
	ErrorType() ErrorType
}

// TypeOf returns the type of the first DrawError or Typed error in err's chain
func TypeOf(err error) ErrorType {
	if err == nil {
		return ""
	}
	var de *DrawError
	if stderrors.As(err, &de) {
		return de.Type
	}
	var typed Typed
	if stderrors.As(err, &typed) {
		return typed.ErrorType()
	}
	return ErrorTypeUnknown
}
