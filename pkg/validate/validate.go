package validate

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Sriram-PR/webtest/pkg/parse"
)

// Kind names a validation service
type Kind string

const (
	KindHTML Kind = "html"
	KindCSS  Kind = "css"
	KindJS   Kind = "js"
)

// Kinds lists every service kind in reporting order
var Kinds = []Kind{KindHTML, KindCSS, KindJS}

// Label is the name of the checked language as shown to users
func (k Kind) Label() string {
	switch k {
	case KindHTML:
		return "HTML"
	case KindCSS:
		return "CSS"
	case KindJS:
		return "JavaScript"
	}
	return string(k)
}

// ResultFile is the name of the file holding a service's findings
func (k Kind) ResultFile() string {
	return string(k) + "_result.txt"
}

// Job is one document to validate
type Job struct {
	URL    parse.URL
	Body   []byte      // Document to upload; HTML bodies are gzip-compressed
	Header http.Header // Headers describing Body (Content-Type, Content-Encoding)
}

// Severity of a validator message
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "Error"
	}
	return "Warning"
}

// Message is one finding reported by a service
type Message struct {
	Severity Severity
	Location string // GNU style position, e.g. "3.1-3.14"
	Text     string
}

// String renders the message as a line of a result file
func (m Message) String() string {
	var b strings.Builder
	b.WriteString("-> ")
	b.WriteString(m.Severity.String())
	b.WriteString(" (")
	b.WriteString(m.Location)
	b.WriteString(")")
	if m.Text != "" {
		b.WriteString(": ")
		b.WriteString(m.Text)
	}
	return b.String()
}

// Result holds what a service reported for one URL
type Result struct {
	URL      parse.URL
	Service  string // Display name of the service, e.g. "HTML validator"
	Messages []Message
	Warnings int
	Errors   int
}

// HasIssues reports whether the service found anything
func (r Result) HasIssues() bool {
	return r.Warnings > 0 || r.Errors > 0 || len(r.Messages) > 0
}

// WarningSummary is the issue line for the warnings, e.g. "CSS validator: 3"
func (r Result) WarningSummary() string {
	return fmt.Sprintf("%s: %d", r.Service, r.Warnings)
}

// ErrorSummary is the issue line for the errors
func (r Result) ErrorSummary() string {
	return fmt.Sprintf("%s: %d", r.Service, r.Errors)
}

// Service checks documents against an online validator
type Service interface {
	Name() string
	Validate(ctx context.Context, job Job) (Result, error)
}

// span is a position range as reported by the validators; every bound is optional
type span struct {
	FirstLine   *int `json:"firstLine,omitempty"`
	FirstColumn *int `json:"firstColumn,omitempty"`
	LastLine    *int `json:"lastLine,omitempty"`
	LastColumn  *int `json:"lastColumn,omitempty"`
}

// GNU formats the span as firstLine.firstColumn-lastLine.lastColumn
// A missing first bound takes the value of the matching last bound
func (s span) GNU() string {
	firstLine, firstColumn, lastLine, lastColumn := s.FirstLine, s.FirstColumn, s.LastLine, s.LastColumn
	if firstLine == nil && lastLine != nil {
		firstLine, lastLine = lastLine, nil
	}
	if firstColumn == nil && lastColumn != nil {
		firstColumn, lastColumn = lastColumn, nil
	}
	hasLast := lastLine != nil || lastColumn != nil

	var b strings.Builder
	if firstLine != nil {
		b.WriteString(strconv.Itoa(*firstLine))
		if firstColumn != nil {
			b.WriteByte('.')
		} else if hasLast {
			b.WriteByte('-')
		}
	}
	if firstColumn != nil {
		b.WriteString(strconv.Itoa(*firstColumn))
		if hasLast {
			b.WriteByte('-')
		}
	}
	if lastLine != nil {
		b.WriteString(strconv.Itoa(*lastLine))
		if lastColumn != nil {
			b.WriteByte('.')
		}
	}
	if lastColumn != nil {
		b.WriteString(strconv.Itoa(*lastColumn))
	}
	return b.String()
}
