package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Sriram-PR/webtest/pkg/fetch"
	"github.com/Sriram-PR/webtest/pkg/utils"
)

// endpointClient performs the requests shared by every service
type endpointClient struct {
	fetcher   *fetch.Fetcher
	endpoint  string
	userAgent string
}

// do sends one request and decodes the JSON answer into out
func (c endpointClient) do(ctx context.Context, method, rawURL string, body io.Reader, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return fmt.Errorf("%w: %w", utils.ErrRequestCreation, err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.fetcher.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: %w", utils.ErrValidator, err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: %s answered %s", utils.ErrValidator, c.endpoint, resp.Status)
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("%w: decoding answer of %s: %w", utils.ErrValidator, c.endpoint, err)
	}
	return nil
}

// withQuery appends an encoded query to the endpoint
func (c endpointClient) withQuery(values url.Values) string {
	sep := "?"
	if strings.Contains(c.endpoint, "?") {
		sep = "&"
	}
	return c.endpoint + sep + values.Encode()
}

// --- HTML (Nu Html Checker) ---

type htmlMessage struct {
	span
	Type    string `json:"type"`
	SubType string `json:"subType,omitempty"`
	Message string `json:"message,omitempty"`
}

type htmlAnswer struct {
	Messages []htmlMessage `json:"messages"`
}

// HTMLService uploads documents to the Nu Html Checker
// With TestURL set, a failed upload is retried by letting the checker fetch the page itself
type HTMLService struct {
	client  endpointClient
	TestURL bool
}

// NewHTMLService creates an HTMLService for endpoint (e.g. https://validator.w3.org/nu/)
func NewHTMLService(fetcher *fetch.Fetcher, endpoint, userAgent string) *HTMLService {
	return &HTMLService{client: endpointClient{fetcher: fetcher, endpoint: endpoint, userAgent: userAgent}}
}

func (s *HTMLService) Name() string { return "HTML validator" }

// Validate posts job.Body with job.Header; messages of type info count as warnings
func (s *HTMLService) Validate(ctx context.Context, job Job) (Result, error) {
	var answer htmlAnswer
	err := s.client.do(ctx, http.MethodPost, s.client.withQuery(url.Values{"out": {"json"}}), bytes.NewReader(job.Body), job.Header, &answer)
	if err != nil && s.TestURL {
		answer = htmlAnswer{}
		err = s.client.do(ctx, http.MethodGet, s.client.withQuery(url.Values{"out": {"json"}, "doc": {job.URL.Encoded()}}), nil, nil, &answer)
	}
	if err != nil {
		return Result{}, err
	}

	res := Result{URL: job.URL, Service: s.Name()}
	for _, m := range answer.Messages {
		msg := Message{Severity: SeverityError, Location: m.GNU(), Text: m.Message}
		if m.Type == "info" {
			msg.Severity = SeverityWarning
			res.Warnings++
		} else {
			res.Errors++
		}
		res.Messages = append(res.Messages, msg)
	}
	return res, nil
}

// --- CSS (Jigsaw) ---

type cssEntry struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

type cssAnswer struct {
	Validation *struct {
		Result struct {
			ErrorCount   int `json:"errorcount"`
			WarningCount int `json:"warningcount"`
		} `json:"result"`
		Warnings []cssEntry `json:"warnings"`
		Errors   []cssEntry `json:"errors"`
	} `json:"cssvalidation"`
}

// CSSService asks the W3C CSS validator to fetch and check a stylesheet
type CSSService struct {
	client       endpointClient
	WarningLevel int
	Profile      string
}

// NewCSSService creates a CSSService for endpoint (e.g. https://jigsaw.w3.org/css-validator/validator)
func NewCSSService(fetcher *fetch.Fetcher, endpoint, userAgent string) *CSSService {
	return &CSSService{
		client:       endpointClient{fetcher: fetcher, endpoint: endpoint, userAgent: userAgent},
		WarningLevel: 2,
		Profile:      "none",
	}
}

func (s *CSSService) Name() string { return "CSS validator" }

// Validate only uses job.URL; the counts come from the validator's own summary
func (s *CSSService) Validate(ctx context.Context, job Job) (Result, error) {
	var answer cssAnswer
	query := url.Values{
		"uri":     {job.URL.Encoded()},
		"warning": {fmt.Sprint(s.WarningLevel)},
		"profile": {s.Profile},
		"output":  {"json"},
	}
	if err := s.client.do(ctx, http.MethodGet, s.client.withQuery(query), nil, nil, &answer); err != nil {
		return Result{}, err
	}

	res := Result{URL: job.URL, Service: s.Name()}
	if answer.Validation == nil {
		return res, nil
	}
	v := answer.Validation
	res.Warnings = v.Result.WarningCount
	res.Errors = v.Result.ErrorCount
	for _, w := range v.Warnings {
		res.Messages = append(res.Messages, Message{Severity: SeverityWarning, Location: fmt.Sprint(w.Line), Text: w.Message})
	}
	for _, e := range v.Errors {
		res.Messages = append(res.Messages, Message{Severity: SeverityError, Location: fmt.Sprint(e.Line), Text: e.Message})
	}
	return res, nil
}

// --- JavaScript (Closure Compiler) ---

type jsEntry struct {
	Line    int    `json:"lineno"`
	Char    int    `json:"charno"`
	Warning string `json:"warning,omitempty"`
	Error   string `json:"error,omitempty"`
}

type jsAnswer struct {
	Warnings []jsEntry `json:"warnings"`
	Errors   []jsEntry `json:"errors"`
}

// JSService compiles scripts with the Closure Compiler service and reports its diagnostics
type JSService struct {
	client       endpointClient
	WarningLevel string
	TestURL      bool
}

// NewJSService creates a JSService for endpoint (e.g. https://closure-compiler.appspot.com/compile)
func NewJSService(fetcher *fetch.Fetcher, endpoint, userAgent string) *JSService {
	return &JSService{
		client:       endpointClient{fetcher: fetcher, endpoint: endpoint, userAgent: userAgent},
		WarningLevel: "VERBOSE",
	}
}

func (s *JSService) Name() string { return "JavaScript validator" }

func (s *JSService) form(source, value string) io.Reader {
	values := url.Values{
		source:          {value},
		"warning_level": {s.WarningLevel},
		"output_format": {"json"},
		"output_info":   {"warnings", "errors"},
	}
	return strings.NewReader(values.Encode())
}

// Validate posts job.Body as js_code
func (s *JSService) Validate(ctx context.Context, job Job) (Result, error) {
	header := http.Header{"Content-Type": {"application/x-www-form-urlencoded; charset=UTF-8"}}

	var answer jsAnswer
	err := s.client.do(ctx, http.MethodPost, s.client.endpoint, s.form("js_code", string(job.Body)), header, &answer)
	if err != nil && s.TestURL {
		answer = jsAnswer{}
		err = s.client.do(ctx, http.MethodPost, s.client.endpoint, s.form("code_url", job.URL.Encoded()), header, &answer)
	}
	if err != nil {
		return Result{}, err
	}

	res := Result{URL: job.URL, Service: s.Name(), Warnings: len(answer.Warnings), Errors: len(answer.Errors)}
	for _, w := range answer.Warnings {
		res.Messages = append(res.Messages, Message{Severity: SeverityWarning, Location: fmt.Sprintf("%d.%d", w.Line, w.Char), Text: w.Warning})
	}
	for _, e := range answer.Errors {
		res.Messages = append(res.Messages, Message{Severity: SeverityError, Location: fmt.Sprintf("%d.%d", e.Line, e.Char), Text: e.Error})
	}
	return res, nil
}
