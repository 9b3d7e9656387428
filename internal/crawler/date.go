package crawler

import (
	"fmt"
	"strings"
	"time"

	"sjsage522/euromillionsworker/pkg/errors"
)

// dateLayout parses the reassembled "<day> <month> <year>" text
const dateLayout = "2 January 2006"

// ordinalSuffixes are tried in order; the first match is removed once
var ordinalSuffixes = []string{"st", "nd", "rd", "th"}

// skipError is a row-level failure that is counted and logged, never propagated
type skipError struct {
	message string
	errType errors.ErrorType
}

func (e *skipError) Error() string {
	return e.message
}

// ErrorType classifies the failure for FetchStats
func (e *skipError) ErrorType() errors.ErrorType {
	return e.errType
}

var (
	// ErrInsufficientTokens is returned for date text with fewer than 4 tokens
	ErrInsufficientTokens error = &skipError{
		message: "date text has fewer than 4 tokens",
		errType: errors.ErrorTypeInsufficientTokens,
	}

	// ErrIncompleteRow is returned when a row does not yield 5 numbers and 2 stars
	ErrIncompleteRow error = &skipError{
		message: "row does not hold 5 numbers and 2 stars",
		errType: errors.ErrorTypeRowSkipped,
	}
)

// DateFormatError reports a reassembled date that does not parse
type DateFormatError struct {
	Text      string
	Candidate string
	Err       error
}

func (e *DateFormatError) Error() string {
	return fmt.Sprintf("cannot parse date %q (normalized %q): %v", e.Text, e.Candidate, e.Err)
}

func (e *DateFormatError) Unwrap() error {
	return e.Err
}

// ErrorType classifies the failure for FetchStats
func (e *DateFormatError) ErrorType() errors.ErrorType {
	return errors.ErrorTypeDateFormat
}

// NormalizeDate converts text such as "Tuesday 18th March 2025" into a UTC date.
// The weekday token is discarded without being checked against the date.
func NormalizeDate(text string) (time.Time, error) {
	// strings.Fields splits on every Unicode space, including U+00A0
	tokens := strings.Fields(text)
	if len(tokens) < 4 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInsufficientTokens, text)
	}

	candidate := StripOrdinal(tokens[1]) + " " + tokens[2] + " " + tokens[3]
	date, err := time.Parse(dateLayout, candidate)
	if err != nil {
		return time.Time{}, &DateFormatError{Text: text, Candidate: candidate, Err: err}
	}
	return date, nil
}

// StripOrdinal removes at most one trailing st, nd, rd or th from a day token
func StripOrdinal(day string) string {
	for _, suffix := range ordinalSuffixes {
		if strings.HasSuffix(day, suffix) {
			return strings.TrimSuffix(day, suffix)
		}
	}
	return day
}
