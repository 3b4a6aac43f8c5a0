package models

import "time"

// PageRecord stores the outcome of fetching one URL in the page store
type PageRecord struct {
	Status      PageStatus `json:"status"`
	StatusCode  int        `json:"status_code,omitempty"`
	ContentType string     `json:"content_type,omitempty"`
	ContentHash string     `json:"content_hash,omitempty"` // SHA256 hex of the decoded body
	Referrer    string     `json:"referrer,omitempty"`
	RedirectTo  string     `json:"redirect_to,omitempty"`
	ErrorType   string     `json:"error_type,omitempty"` // Error category (on failure)
	Errors      int        `json:"errors,omitempty"`
	Warnings    int        `json:"warnings,omitempty"`
	LastAttempt time.Time  `json:"last_attempt"` // Timestamp of the last fetch attempt
}

// Reference is one page linking to a reported URL, with the redirect hops crossed on the way
type Reference struct {
	URL string   `yaml:"url"`
	Via []string `yaml:"via,omitempty"`
}

// URLIssues lists the messages reported for one URL
type URLIssues struct {
	URL          string      `yaml:"url"`
	Messages     []string    `yaml:"messages"`
	ReferencedBy []Reference `yaml:"referenced_by,omitempty"`
}

// CrawlReport is the YAML summary of one crawl run
type CrawlReport struct {
	RunID        string      `yaml:"run_id"`
	UserAgent    string      `yaml:"user_agent"`
	StartURLs    []string    `yaml:"start_urls"`
	StartTime    time.Time   `yaml:"start_time"`
	EndTime      time.Time   `yaml:"end_time"`
	Interrupted  bool        `yaml:"interrupted,omitempty"`
	PagesFetched int         `yaml:"pages_fetched"`
	Errors       []URLIssues `yaml:"errors,omitempty"`
	Warnings     []URLIssues `yaml:"warnings,omitempty"`
	ResultFiles  []string    `yaml:"validation_result_files,omitempty"`
}
