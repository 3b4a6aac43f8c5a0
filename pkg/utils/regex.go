package utils

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/Sriram-PR/webtest/pkg/parse"
)

// placeholderPattern matches rule keywords such as [*netloc*]
var placeholderPattern = regexp.MustCompile(`\[\*([A-Za-z]+)\*\]`)

// CompileRegexPatterns compiles regex strings into usable *regexp.Regexp objects.
// Returns an error if any pattern is invalid.
func CompileRegexPatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for i, pattern := range patterns {
		if pattern == "" { // Skip empty patterns silently
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, WrapErrorf(ErrConfigValidation, "invalid regex pattern #%d ('%s')", i+1, pattern)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// ExpandRule replaces every [*field*] keyword of rule with the quoted field of each start URL
// A rule without keywords is returned as is; the result holds no duplicates
func ExpandRule(rule string, starts []parse.URL) ([]string, error) {
	if !placeholderPattern.MatchString(rule) {
		return []string{rule}, nil
	}

	seen := make(map[string]struct{}, len(starts))
	expanded := make([]string, 0, len(starts))
	for _, start := range starts {
		var unknown string
		pattern := placeholderPattern.ReplaceAllStringFunc(rule, func(m string) string {
			name := placeholderPattern.FindStringSubmatch(m)[1]
			value, ok := start.Field(name)
			if !ok {
				unknown = name
				return m
			}
			return regexp.QuoteMeta(value)
		})
		if unknown != "" {
			return nil, WrapErrorf(ErrConfigValidation, "unknown rule keyword '%s' in '%s'", unknown, rule)
		}
		if _, dup := seen[pattern]; dup {
			continue
		}
		seen[pattern] = struct{}{}
		expanded = append(expanded, pattern)
	}
	return expanded, nil
}

// CompileRules expands and compiles include/exclude rules against the start URLs
func CompileRules(rules []string, starts []parse.URL) ([]*regexp.Regexp, error) {
	var patterns []string
	seen := make(map[string]struct{})
	for _, rule := range rules {
		expanded, err := ExpandRule(rule, starts)
		if err != nil {
			return nil, err
		}
		for _, p := range expanded {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			patterns = append(patterns, p)
		}
	}
	return CompileRegexPatterns(patterns)
}

// ReadRules loads one rule per line from a UTF-8 file; blank lines and lines starting with # are skipped
func ReadRules(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening rules file '%s': %w", ErrFilesystem, path, err)
	}
	defer file.Close()

	var rules []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rules = append(rules, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading rules file '%s': %w", ErrFilesystem, path, err)
	}
	return rules, nil
}

// MatchAny reports whether s matches one of the rules
func MatchAny(rules []*regexp.Regexp, s string) bool {
	for _, re := range rules {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
