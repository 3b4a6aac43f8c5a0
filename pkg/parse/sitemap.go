package parse

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidSitemap = errors.New("invalid sitemap")

// --- XML Structs for Sitemap Parsing ---

// XMLURL represents a <url> element in a sitemap
type XMLURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// XMLURLSet represents a <urlset> element in a sitemap
type XMLURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []XMLURL `xml:"url"`
}

// XMLSitemap represents a <sitemap> element in a sitemap index file
type XMLSitemap struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// XMLSitemapIndex represents a <sitemapindex> element
type XMLSitemapIndex struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	Sitemaps []XMLSitemap `xml:"sitemap"`
}

// Sitemap is a parsed sitemap document: either an index of sitemaps or a set of pages
type Sitemap struct {
	Pages    []URL // Entries of a <urlset>
	Sitemaps []URL // Entries of a <sitemapindex>
	Skipped  int   // Entries whose <loc> is not an absolute http(s) URL
}

// ParseSitemap decodes a sitemap or sitemap index document
func ParseSitemap(data []byte) (Sitemap, error) {
	var out Sitemap
	add := func(dst *[]URL, loc string) {
		u, err := Parse(strings.TrimSpace(loc), Options{UseQuery: true})
		if err != nil || u.IsRelative() {
			out.Skipped++
			return
		}
		*dst = append(*dst, u)
	}

	var index XMLSitemapIndex
	errIndex := xml.Unmarshal(data, &index)
	if errIndex == nil {
		for _, entry := range index.Sitemaps {
			add(&out.Sitemaps, entry.Loc)
		}
		return out, nil
	}

	var set XMLURLSet
	errSet := xml.Unmarshal(data, &set)
	if errSet != nil {
		return out, fmt.Errorf("%w: not a sitemap index (%v) nor a url set (%v)", ErrInvalidSitemap, errIndex, errSet)
	}
	for _, entry := range set.URLs {
		add(&out.Pages, entry.Loc)
	}
	return out, nil
}
