package models

// PageStatus represents the fetch status of a page in the page store
type PageStatus string

const (
	PageStatusUnset      PageStatus = ""           // Zero value = unset/unknown
	PageStatusPending    PageStatus = "pending"    // Page queued but not fetched
	PageStatusSuccess    PageStatus = "success"    // Page answered with a 2xx status
	PageStatusRedirected PageStatus = "redirected" // Page answered with a redirect
	PageStatusFailure    PageStatus = "failure"    // No response, or a 4xx/5xx status
	PageStatusSkipped    PageStatus = "skipped"    // Disallowed by robots.txt
	PageStatusNotFound   PageStatus = "not_found"  // Page not in database
	PageStatusDBError    PageStatus = "db_error"   // Database error occurred
)

// String implements fmt.Stringer for logging
func (s PageStatus) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

// IsValid returns true if the status is a known operational value
func (s PageStatus) IsValid() bool {
	switch s {
	case PageStatusPending, PageStatusSuccess, PageStatusRedirected, PageStatusFailure, PageStatusSkipped:
		return true
	}
	return false
}

// StatusForCode maps an HTTP status code to the page status it records
func StatusForCode(code int) PageStatus {
	switch {
	case code >= 400:
		return PageStatusFailure
	case code >= 300:
		return PageStatusRedirected
	case code >= 200:
		return PageStatusSuccess
	}
	return PageStatusFailure
}
