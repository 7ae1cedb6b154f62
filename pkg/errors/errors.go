package errors

import (
	"errors"
	"fmt"
	"time"
)

// Reason is the machine-readable code reported for a failed product
type Reason string

const (
	// ReasonInvalidURL means the product URL could not be parsed
	ReasonInvalidURL Reason = "invalid-url"
	// ReasonUnsupportedStore means no extractor is registered for the store
	ReasonUnsupportedStore Reason = "unsupported-store"
	// ReasonNoPriceFound means every extraction strategy came back empty
	ReasonNoPriceFound Reason = "no-price-found"
	// ReasonFetchFailed means the page could not be retrieved
	ReasonFetchFailed Reason = "fetch-failed"
	// ReasonValidationFailed means a price was found but fell outside the sane range
	ReasonValidationFailed Reason = "validation-failed"
	// ReasonStoreFailed means the repository failed while handling this product
	ReasonStoreFailed Reason = "store-failed"
	// ReasonUnknown is used for errors that carry no reason
	ReasonUnknown Reason = "unknown"
)

// ScrapeError represents a per-product failure
type ScrapeError struct {
	Reason     Reason
	ProductID  string
	Message    string
	StatusCode int
	Err        error
	Time       time.Time
}

// Error implements the error interface
func (e *ScrapeError) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Reason, e.ProductID, msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Reason, e.ProductID, msg)
}

// Unwrap returns the underlying error
func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// Detail returns a short human readable description without the reason prefix
func (e *ScrapeError) Detail() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Message
	}
}

// IsRetryable returns true if the failure is worth retrying within a fetch
func (e *ScrapeError) IsRetryable() bool {
	if e.Reason != ReasonFetchFailed {
		return false
	}
	switch {
	case e.StatusCode == 0:
		// network level failure
		return e.Err != nil
	case e.StatusCode == 429:
		return true
	case e.StatusCode >= 500:
		return true
	default:
		return false
	}
}

// New creates a new ScrapeError
func New(reason Reason, productID, message string, err error) *ScrapeError {
	return &ScrapeError{
		Reason:    reason,
		ProductID: productID,
		Message:   message,
		Err:       err,
		Time:      time.Now(),
	}
}

// NewInvalidURL creates an invalid-url error
func NewInvalidURL(productID string, err error) *ScrapeError {
	return New(ReasonInvalidURL, productID, "cannot parse product url", err)
}

// NewUnsupportedStore creates an unsupported-store error
func NewUnsupportedStore(productID, store string) *ScrapeError {
	return New(ReasonUnsupportedStore, productID, fmt.Sprintf("store not supported: %s", store), nil)
}

// NewNoPriceFound creates a no-price-found error
func NewNoPriceFound(productID string) *ScrapeError {
	return New(ReasonNoPriceFound, productID, "no extraction strategy produced a price", nil)
}

// NewValidation creates a validation-failed error
func NewValidation(productID, message string) *ScrapeError {
	return New(ReasonValidationFailed, productID, message, nil)
}

// NewFetch creates a fetch-failed error for an HTTP status
func NewFetch(url string, statusCode int) *ScrapeError {
	e := New(ReasonFetchFailed, "", "fetch "+url, nil)
	e.StatusCode = statusCode
	return e
}

// NewNetwork creates a fetch-failed error for a transport level failure
func NewNetwork(url string, err error) *ScrapeError {
	return New(ReasonFetchFailed, "", "fetch "+url, err)
}

// NewStore creates a store-failed error
func NewStore(productID, message string, err error) *ScrapeError {
	return New(ReasonStoreFailed, productID, message, err)
}

// ReasonOf extracts the reason code from an error chain
func ReasonOf(err error) Reason {
	if err == nil {
		return ""
	}
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Reason
	}
	return ReasonUnknown
}

// StatusCodeOf returns the HTTP status carried by the error chain, or 0
func StatusCodeOf(err error) int {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// WithProduct stamps the product id on a ScrapeError found in err, returning it
func WithProduct(err error, productID string) error {
	var se *ScrapeError
	if errors.As(err, &se) && se.ProductID == "" {
		se.ProductID = productID
	}
	return err
}

// DetailOf returns the short description of a ScrapeError, or err's text
func DetailOf(err error) string {
	if err == nil {
		return ""
	}
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Detail()
	}
	return err.Error()
}
