package parse

import (
	"encoding/xml"
	"errors"
	"testing"
)

func TestXMLURLSet_Unmarshal(t *testing.T) {
	tests := []struct {
		name            string
		xmlData         string
		expectedURLs    int
		expectedLastMod string
	}{
		{
			name:         "Empty",
			xmlData:      `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9"></urlset>`,
			expectedURLs: 0,
		},
		{
			name: "TwoURLsWithLastMod",
			xmlData: `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
				<url><loc>https://example.com/a</loc><lastmod>2024-01-15</lastmod></url>
				<url><loc>https://example.com/b</loc></url>
			</urlset>`,
			expectedURLs:    2,
			expectedLastMod: "2024-01-15",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var set XMLURLSet
			if err := xml.Unmarshal([]byte(tt.xmlData), &set); err != nil {
				t.Fatalf("xml.Unmarshal() error = %v", err)
			}
			if len(set.URLs) != tt.expectedURLs {
				t.Fatalf("len(URLs) = %d, want %d", len(set.URLs), tt.expectedURLs)
			}
			if tt.expectedURLs > 0 && set.URLs[0].LastMod != tt.expectedLastMod {
				t.Errorf("URLs[0].LastMod = %q, want %q", set.URLs[0].LastMod, tt.expectedLastMod)
			}
		})
	}
}

func TestParseSitemap_URLSet(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
	<url><loc> https://example.com/a </loc></url>
	<url><loc>https://example.com/b?x=1#frag</loc></url>
	<url><loc>/relative</loc></url>
	<url><loc>ftp://example.com/file</loc></url>
</urlset>`)

	sm, err := ParseSitemap(data)
	if err != nil {
		t.Fatalf("ParseSitemap() error = %v", err)
	}
	if len(sm.Sitemaps) != 0 {
		t.Errorf("Sitemaps = %v, want none", sm.Sitemaps)
	}
	if len(sm.Pages) != 2 {
		t.Fatalf("len(Pages) = %d, want 2", len(sm.Pages))
	}
	if got := sm.Pages[0].Full(); got != "https://example.com/a" {
		t.Errorf("Pages[0] = %q", got)
	}
	if got := sm.Pages[1].Full(); got != "https://example.com/b?x=1" {
		t.Errorf("Pages[1] = %q, fragment should be dropped", got)
	}
	if sm.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", sm.Skipped)
	}
}

func TestParseSitemap_Index(t *testing.T) {
	data := []byte(`<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
	<sitemap><loc>https://example.com/sitemap-1.xml</loc><lastmod>2024-01-01</lastmod></sitemap>
	<sitemap><loc>https://example.com/sitemap-2.xml.gz</loc></sitemap>
</sitemapindex>`)

	sm, err := ParseSitemap(data)
	if err != nil {
		t.Fatalf("ParseSitemap() error = %v", err)
	}
	if len(sm.Pages) != 0 {
		t.Errorf("Pages = %v, want none", sm.Pages)
	}
	if len(sm.Sitemaps) != 2 {
		t.Fatalf("len(Sitemaps) = %d, want 2", len(sm.Sitemaps))
	}
	if got := sm.Sitemaps[1].File(); got != "sitemap-2.xml.gz" {
		t.Errorf("Sitemaps[1].File() = %q", got)
	}
}

func TestParseSitemap_Invalid(t *testing.T) {
	for _, data := range []string{"", "<html><body>not a sitemap</body></html>", "<urlset><url>"} {
		_, err := ParseSitemap([]byte(data))
		if !errors.Is(err, ErrInvalidSitemap) {
			t.Errorf("ParseSitemap(%q) error = %v, want ErrInvalidSitemap", data, err)
		}
	}
}
