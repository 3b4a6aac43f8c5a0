package process

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/Sriram-PR/webtest/pkg/fetch"
	"github.com/Sriram-PR/webtest/pkg/parse"
	"github.com/Sriram-PR/webtest/pkg/utils"
)

// Link is one reference found in an HTML document
type Link struct {
	URL       parse.URL
	Tag       string // Lowercase element name
	Attr      string // href, src, style or content (meta refresh)
	Rel       string // rel attribute of the element, if any
	HTTPEquiv string // Lowercase http-equiv attribute of the element, if any
}

// IsAnchor reports whether the link is a navigational a[href]; everything else is a page resource
func (l Link) IsAnchor() bool {
	return l.Tag == "a" && l.Attr == "href"
}

// IsRefresh reports whether the link comes from a meta refresh
func (l Link) IsRefresh() bool {
	return l.Tag == "meta" && l.Attr == "content" && l.HTTPEquiv == "refresh"
}

// Nofollow reports whether the element carries rel=nofollow
func (l Link) Nofollow() bool {
	for _, token := range strings.Fields(strings.ToLower(l.Rel)) {
		if token == "nofollow" {
			return true
		}
	}
	return false
}

// HTMLResult holds what ExtractHTML found
type HTMLResult struct {
	Links   []Link // In document order
	Charset string // Charset declared by the document, or the one given
}

// ExtractHTML finds the references of an HTML document and resolves them against base
// Links come from href and src attributes, url() in style attributes and meta refresh
func ExtractHTML(body string, base parse.URL, charset string) (HTMLResult, error) {
	res := HTMLResult{Charset: strings.ToLower(charset)}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return res, utils.WrapErrorf(utils.ErrParsing, "HTML document %s: %v", base.Full(), err)
	}

	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		if node.Type != html.ElementNode {
			return
		}
		tag := strings.ToLower(node.Data)
		rel, _ := s.Attr("rel")
		equiv, _ := s.Attr("http-equiv")
		equiv = strings.ToLower(strings.TrimSpace(equiv))

		link := func(u parse.URL, attr string) {
			res.Links = append(res.Links, Link{URL: u, Tag: tag, Attr: attr, Rel: rel, HTTPEquiv: equiv})
		}

		for _, attr := range node.Attr {
			switch strings.ToLower(attr.Key) {
			case "href", "src":
				if strings.TrimSpace(attr.Val) == "" {
					continue
				}
				if u, err := base.Hyperlink(attr.Val); err == nil {
					link(u, strings.ToLower(attr.Key))
				}
			case "style":
				for _, u := range ExtractCSS(attr.Val, base, res.Charset).Links {
					link(u, "style")
				}
			}
		}

		if tag != "meta" {
			return
		}
		content, _ := s.Attr("content")
		switch equiv {
		case "refresh":
			if target, ok := refreshTarget(content); ok {
				if u, err := base.Hyperlink(target); err == nil {
					link(u, "content")
				}
			}
		case "content-type":
			if _, params := fetch.ParseContentType(content); params["charset"] != "" {
				res.Charset = strings.ToLower(params["charset"])
			}
		case "charset":
			if content != "" {
				res.Charset = strings.ToLower(strings.TrimSpace(content))
			}
		}
		if declared, ok := s.Attr("charset"); ok && strings.TrimSpace(declared) != "" {
			res.Charset = strings.ToLower(strings.TrimSpace(declared))
		}
	})
	return res, nil
}

// refreshTarget extracts the URL of a meta refresh value such as "5; url='/next'"
func refreshTarget(content string) (string, bool) {
	for _, part := range strings.Split(content, ";") {
		part = strings.TrimSpace(part)
		if part == "" || isDigits(part) {
			continue
		}
		if key, value, found := strings.Cut(part, "="); found && strings.EqualFold(strings.TrimSpace(key), "url") {
			part = strings.TrimSpace(value)
		}
		if len(part) >= 2 && (part[0] == '"' || part[0] == '\'') {
			if end := strings.IndexByte(part[1:], part[0]); end >= 0 {
				part = part[1 : end+1]
			}
		}
		if part != "" {
			return part, true
		}
	}
	return "", false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// ScanHTML decodes a document and extracts its links
// When the document declares another charset in a meta element it is decoded again with it
func ScanHTML(data []byte, base parse.URL, declared, inherited string) (HTMLResult, error) {
	text, name := DecodeBody(data, declared, inherited)
	res, err := ExtractHTML(text, base, name)
	if err != nil {
		return res, err
	}
	if res.Charset != "" && res.Charset != name {
		if redecoded, used, err := Decode(data, res.Charset, false); err == nil && used != name {
			if again, err := ExtractHTML(redecoded, base, used); err == nil {
				again.Charset = used
				return again, nil
			}
		}
	}
	res.Charset = name
	return res, nil
}
