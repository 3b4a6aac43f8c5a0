package utils

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Sriram-PR/webtest/pkg/parse"
)

// --- CategorizeError Tests ---

func TestCategorizeError_NilError(t *testing.T) {
	result := CategorizeError(nil)
	if result != "None" {
		t.Errorf("CategorizeError(nil) = %q, want %q", result, "None")
	}
}

func TestCategorizeError_SentinelErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"RobotsDisallowed", ErrRobotsDisallowed, "Policy_Robots"},
		{"RedirectLoop", ErrRedirectLoop, "Policy_RedirectLoop"},
		{"Connect", ErrConnect, "Network_Connect"},
		{"Decoding", ErrDecoding, "Content_Decoding"},
		{"Validator", ErrValidator, "Validator_Service"},
		{"RequestCreation", ErrRequestCreation, "Internal_RequestCreation"},
		{"ResponseBodyRead", ErrResponseBodyRead, "Network_BodyRead"},
		{"ConfigValidation", ErrConfigValidation, "Config_Validation"},
		{"ServerHTTPError", ErrServerHTTPError, "HTTP_5xx"},
		{"OtherHTTPError", ErrOtherHTTPError, "HTTP_OtherStatus"},
		{"Database", ErrDatabase, "Database_Other"},
		{"Filesystem", ErrFilesystem, "Filesystem_Other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CategorizeError(tt.err)
			if result != tt.expected {
				t.Errorf("CategorizeError(%v) = %q, want %q", tt.err, result, tt.expected)
			}
		})
	}
}

func TestCategorizeError_WrappedErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "WrappedRobotsDisallowed",
			err:      fmt.Errorf("some context: %w", ErrRobotsDisallowed),
			expected: "Policy_Robots",
		},
		{
			name:     "WrappedConnect",
			err:      fmt.Errorf("http://example.com: %w", ErrConnect),
			expected: "Network_Connect",
		},
		{
			name:     "DoubleWrapped",
			err:      fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", ErrRedirectLoop)),
			expected: "Policy_RedirectLoop",
		},
		{
			name:     "RetryFailedTimeout",
			err:      fmt.Errorf("%w: %w", ErrRetryFailed, errors.New("i/o timeout")),
			expected: "RetryFailed_NetworkTimeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CategorizeError(tt.err)
			if result != tt.expected {
				t.Errorf("CategorizeError(%v) = %q, want %q", tt.err, result, tt.expected)
			}
		})
	}
}

func TestCategorizeError_ClientHTTPCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "404",
			err:      fmt.Errorf("HTTP status 404 : %w", ErrClientHTTPError),
			expected: "HTTP_404",
		},
		{
			name:     "403",
			err:      fmt.Errorf("HTTP status 403 : %w", ErrClientHTTPError),
			expected: "HTTP_403",
		},
		{
			name:     "401",
			err:      fmt.Errorf("HTTP status 401 : %w", ErrClientHTTPError),
			expected: "HTTP_401",
		},
		{
			name:     "429",
			err:      fmt.Errorf("HTTP status 429 : %w", ErrClientHTTPError),
			expected: "HTTP_429",
		},
		{
			name:     "Generic4xx",
			err:      fmt.Errorf("HTTP status 400: %w", ErrClientHTTPError),
			expected: "HTTP_4xx",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CategorizeError(tt.err)
			if result != tt.expected {
				t.Errorf("CategorizeError(%v) = %q, want %q", tt.err, result, tt.expected)
			}
		})
	}
}

func TestCategorizeError_ParsingErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "URLParsing",
			err:      fmt.Errorf("URL parsing failed: %w", ErrParsing),
			expected: "Content_ParsingURL",
		},
		{
			name:     "HTMLParsing",
			err:      fmt.Errorf("HTML parsing failed: %w", ErrParsing),
			expected: "Content_ParsingHTML",
		},
		{
			name:     "CSSParsing",
			err:      fmt.Errorf("CSS parsing failed: %w", ErrParsing),
			expected: "Content_ParsingCSS",
		},
		{
			name:     "JSONParsing",
			err:      fmt.Errorf("JSON parsing failed: %w", ErrParsing),
			expected: "Content_ParsingJSON",
		},
		{
			name:     "XMLParsing",
			err:      fmt.Errorf("XML parsing failed: %w", ErrParsing),
			expected: "Content_ParsingXML",
		},
		{
			name:     "GenericParsing",
			err:      fmt.Errorf("parsing failed: %w", ErrParsing),
			expected: "Content_ParsingOther",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CategorizeError(tt.err)
			if result != tt.expected {
				t.Errorf("CategorizeError(%v) = %q, want %q", tt.err, result, tt.expected)
			}
		})
	}
}

func TestCategorizeError_ContextErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"ContextCanceled", context.Canceled, "System_ContextCanceled"},
		{"ContextDeadlineExceeded", context.DeadlineExceeded, "System_ContextDeadlineExceeded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CategorizeError(tt.err)
			if result != tt.expected {
				t.Errorf("CategorizeError(%v) = %q, want %q", tt.err, result, tt.expected)
			}
		})
	}
}

func TestCategorizeError_NetworkStrings(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"Timeout", errors.New("connection timeout occurred"), "Network_TimeoutGeneric"},
		{"ConnectionRefused", errors.New("connection refused"), "Network_ConnectionRefused"},
		{"DNSLookup", errors.New("no such host"), "Network_DNSLookup"},
		{"TLS", errors.New("tls handshake failed"), "Network_TLS"},
		{"Certificate", errors.New("certificate verify failed"), "Network_TLS"},
		{"ConnectionReset", errors.New("reset by peer"), "Network_ConnectionReset"},
		{"BrokenPipe", errors.New("broken pipe"), "Network_BrokenPipe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CategorizeError(tt.err)
			if result != tt.expected {
				t.Errorf("CategorizeError(%v) = %q, want %q", tt.err, result, tt.expected)
			}
		})
	}
}

func TestCategorizeError_Unknown(t *testing.T) {
	err := errors.New("some completely unknown error")
	result := CategorizeError(err)
	if result != "Unknown" {
		t.Errorf("CategorizeError(%v) = %q, want %q", err, result, "Unknown")
	}
}

// --- NormalizeFilename Tests ---

func TestNormalizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Simple", "hello", "hello"},
		{"WithSpaces", "hello world", "hello_world"},
		{"WithSlash", "path/to/file", "path_to_file"},
		{"WithColon", "file:name", "file_name"},
		{"KeepsDotsCommasDashes", "a.b,c-d_e", "a.b,c-d_e"},
		{"Accents", "résumé", "resume"},
		{"Ligature", "ﬁle", "file"},
		{"NonLatinDropped", "日本docs", "docs"},
		{"LeadingTrailingSpaces", "  file  ", "file"},
		{"Empty", "", "untitled"},
		{"OnlyNonASCII", "日本", "untitled"},
		{"Dot", ".", "untitled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeFilename(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalizeFilename_LongNames(t *testing.T) {
	result := NormalizeFilename(strings.Repeat("a", 150))
	if len(result) > 100 {
		t.Errorf("NormalizeFilename(long) length = %d, want <= 100", len(result))
	}
}

func TestNormalizeFilepath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"validation_20240301-120000.00000UTC", "validation_20240301-120000.00000UTC"},
		{"out dir/été", filepath.FromSlash("out_dir/ete")},
		{"/tmp/a b", filepath.FromSlash("/tmp/a_b")},
		{"../results//x", filepath.FromSlash("../results/x")},
	}

	for _, tt := range tests {
		if got := NormalizeFilepath(tt.input); got != tt.expected {
			t.Errorf("NormalizeFilepath(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

// --- CompileRegexPatterns Tests ---

func TestCompileRegexPatterns_ValidPatterns(t *testing.T) {
	patterns := []string{
		`^/docs/.*`,
		`\.html$`,
		`[a-z]+`,
	}

	compiled, err := CompileRegexPatterns(patterns)
	if err != nil {
		t.Fatalf("CompileRegexPatterns() unexpected error: %v", err)
	}
	if len(compiled) != 3 {
		t.Errorf("CompileRegexPatterns() returned %d patterns, want 3", len(compiled))
	}
}

func TestCompileRegexPatterns_EmptySlice(t *testing.T) {
	compiled, err := CompileRegexPatterns([]string{})
	if err != nil {
		t.Fatalf("CompileRegexPatterns([]) unexpected error: %v", err)
	}
	if len(compiled) != 0 {
		t.Errorf("CompileRegexPatterns([]) returned %d patterns, want 0", len(compiled))
	}
}

func TestCompileRegexPatterns_EmptyStringsSkipped(t *testing.T) {
	patterns := []string{"valid", "", "also_valid", ""}

	compiled, err := CompileRegexPatterns(patterns)
	if err != nil {
		t.Fatalf("CompileRegexPatterns() unexpected error: %v", err)
	}
	if len(compiled) != 2 {
		t.Errorf("CompileRegexPatterns() returned %d patterns, want 2", len(compiled))
	}
}

func TestCompileRegexPatterns_InvalidPattern(t *testing.T) {
	patterns := []string{
		`valid`,
		`[invalid`, // Unclosed bracket
	}

	_, err := CompileRegexPatterns(patterns)
	if err == nil {
		t.Fatal("CompileRegexPatterns() expected error for invalid pattern, got nil")
	}
	if !errors.Is(err, ErrConfigValidation) {
		t.Errorf("CompileRegexPatterns() error = %v, want wrapped ErrConfigValidation", err)
	}
}

// --- Rule Tests ---

func TestExpandRule(t *testing.T) {
	starts := []parse.URL{
		parse.MustParse("http://example.com/docs/"),
		parse.MustParse("https://example.com/"),
		parse.MustParse("http://other.test:8080/"),
	}

	got, err := ExpandRule(`^https?://[*netloc*].*$`, starts)
	if err != nil {
		t.Fatalf("ExpandRule() unexpected error: %v", err)
	}
	want := []string{`^https?://example\.com.*$`, `^https?://other\.test:8080.*$`}
	if len(got) != len(want) {
		t.Fatalf("ExpandRule() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ExpandRule()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	plain, err := ExpandRule(`\.pdf$`, starts)
	if err != nil || len(plain) != 1 || plain[0] != `\.pdf$` {
		t.Errorf("ExpandRule(no keyword) = %v, %v", plain, err)
	}
}

func TestExpandRule_UnknownKeyword(t *testing.T) {
	_, err := ExpandRule(`[*nope*]`, []parse.URL{parse.MustParse("http://example.com/")})
	if !errors.Is(err, ErrConfigValidation) {
		t.Errorf("ExpandRule() error = %v, want ErrConfigValidation", err)
	}
}

func TestCompileRules(t *testing.T) {
	starts := []parse.URL{parse.MustParse("http://example.com/")}
	rules, err := CompileRules([]string{`^https?://[*hostname*]/`, `^https?://[*hostname*]/`, `/private/`}, starts)
	if err != nil {
		t.Fatalf("CompileRules() unexpected error: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("CompileRules() returned %d rules, want 2", len(rules))
	}
	if !MatchAny(rules, "https://example.com/page") {
		t.Error("MatchAny() = false for start host")
	}
	if MatchAny(rules, "http://exampleXcom/page") {
		t.Error("MatchAny() = true, dots in keywords must be quoted")
	}
	if !MatchAny(rules, "http://elsewhere.test/private/x") {
		t.Error("MatchAny() = false for plain rule")
	}
}

func TestReadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.txt")
	content := "# comment\n^https?://[*netloc*]/docs/\n\n\\.pdf$\r\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write rules file: %v", err)
	}

	rules, err := ReadRules(path)
	if err != nil {
		t.Fatalf("ReadRules() unexpected error: %v", err)
	}
	want := []string{`^https?://[*netloc*]/docs/`, `\.pdf$`}
	if len(rules) != len(want) {
		t.Fatalf("ReadRules() = %v, want %v", rules, want)
	}
	for i := range want {
		if rules[i] != want[i] {
			t.Errorf("ReadRules()[%d] = %q, want %q", i, rules[i], want[i])
		}
	}

	if _, err := ReadRules(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, ErrFilesystem) {
		t.Errorf("ReadRules(missing) error = %v, want ErrFilesystem", err)
	}
}

// --- ContentDigest Tests ---

func TestContentDigest(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string // SHA256 hex output
	}{
		{
			name:     "Empty",
			input:    "",
			expected: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name:     "HelloWorld",
			input:    "hello world",
			expected: "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ContentDigest([]byte(tt.input))
			if result != tt.expected {
				t.Errorf("ContentDigest(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

// --- WrapErrorf Tests ---

func TestWrapErrorf_NilError(t *testing.T) {
	result := WrapErrorf(nil, "some context")
	if result != nil {
		t.Errorf("WrapErrorf(nil, ...) = %v, want nil", result)
	}
}

func TestWrapErrorf_WrapsError(t *testing.T) {
	original := errors.New("original error")
	wrapped := WrapErrorf(original, "context %s", "value")

	if wrapped == nil {
		t.Fatal("WrapErrorf() returned nil, want error")
	}
	if !errors.Is(wrapped, original) {
		t.Error("WrapErrorf() result should wrap original error")
	}
	expectedMsg := "context value: original error"
	if wrapped.Error() != expectedMsg {
		t.Errorf("WrapErrorf() message = %q, want %q", wrapped.Error(), expectedMsg)
	}
}
