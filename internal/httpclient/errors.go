package httpclient

import (
	"fmt"
	"net/http"

	"github.com/tphakala/birddeck/internal/errors"
)

// StatusError reports a completed request with a non-2xx status
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d %s for %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// ErrorCategory classifies status errors as HTTP request errors
func (e *StatusError) ErrorCategory() errors.ErrorCategory {
	if e.StatusCode == http.StatusNotFound {
		return errors.CategoryNotFound
	}
	return errors.CategoryHTTP
}

// IsStatus reports whether err is a StatusError with the given code
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}
