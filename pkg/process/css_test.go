package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/webtest/pkg/parse"
)

func fullURLs(urls []parse.URL) []string {
	out := make([]string, len(urls))
	for i, u := range urls {
		out[i] = u.Full()
	}
	return out
}

func TestExtractCSS(t *testing.T) {
	base := parse.MustParse("http://example.com/css/site.css")
	sheet := `@charset "UTF-8";
@import "reset.css";
@import url('print.css') print;
body { background: url('img/bg.png') }
.a { background: url( img/bg.png ) }
.b { background: url("/abs.png") }
.c { background: url(data:image/png;base64,iVBORw0KGgo=) }
.d { background: url() }`

	res := ExtractCSS(sheet, base, "")

	assert.Equal(t, "utf-8", res.Charset)
	assert.Equal(t, []string{
		"http://example.com/css/reset.css",
		"http://example.com/css/print.css",
		"http://example.com/css/img/bg.png",
		"http://example.com/abs.png",
	}, fullURLs(res.Links))
	assert.Equal(t, []string{
		"http://example.com/css/reset.css",
		"http://example.com/css/print.css",
	}, fullURLs(res.Imports))
}

func TestExtractCSS_SkipsComments(t *testing.T) {
	base := parse.MustParse("http://example.com/css/site.css")
	tests := []struct {
		name     string
		sheet    string
		expected []string
	}{
		{
			name:     "CommentedOut",
			sheet:    "/* old: url(removed.png) @import 'gone.css'; */ body{color:red}",
			expected: []string{},
		},
		{
			name:     "CommentBetweenRules",
			sheet:    "a{background:url(a.png)} /* url(b.png) */ b{background:url(c.png)}",
			expected: []string{"http://example.com/css/a.png", "http://example.com/css/c.png"},
		},
		{
			name:     "CommentAfterImport",
			sheet:    "@import /* note */ 'base.css';",
			expected: []string{"http://example.com/css/base.css"},
		},
		{
			name:     "DocumentOrder",
			sheet:    "a{background:url(z.png)} @import 'late.css';",
			expected: []string{"http://example.com/css/z.png", "http://example.com/css/late.css"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ExtractCSS(tt.sheet, base, "utf-8")
			assert.Equal(t, tt.expected, fullURLs(res.Links))
		})
	}
}

func TestExtractCSS_KeepsGivenCharset(t *testing.T) {
	base := parse.MustParse("http://example.com/")
	res := ExtractCSS(`p { color: red }`, base, "ISO-8859-1")

	assert.Equal(t, "iso-8859-1", res.Charset)
	assert.Empty(t, res.Links)
}

func TestExtractCSS_EscapedQuotes(t *testing.T) {
	base := parse.MustParse("http://example.com/")
	res := ExtractCSS(`a { background: url("it\"s.png") }`, base, "")

	require.Len(t, res.Links, 1)
	assert.Equal(t, `it"s.png`, res.Links[0].File())
}

func TestScanCSS_RedecodesWithDeclaredCharset(t *testing.T) {
	base := parse.MustParse("http://example.com/")
	data := []byte("@charset \"utf-8\";\n.x { background: url(caf\xc3\xa9.png) }")

	res := ScanCSS(data, base, "", "")

	assert.Equal(t, "utf-8", res.Charset)
	require.Len(t, res.Links, 1)
	assert.Equal(t, "café.png", res.Links[0].File())
}

func TestScanCSS_DefaultCharset(t *testing.T) {
	base := parse.MustParse("http://example.com/")
	res := ScanCSS([]byte(".x { background: url(a.png) }"), base, "", "")

	assert.Equal(t, "windows-1252", res.Charset)
	assert.Equal(t, []string{"http://example.com/a.png"}, fullURLs(res.Links))
}
