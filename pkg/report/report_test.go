package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/webtest/pkg/models"
	"github.com/Sriram-PR/webtest/pkg/parse"
	"github.com/Sriram-PR/webtest/pkg/queue"
)

func TestIssues(t *testing.T) {
	issues := NewIssues()
	a := parse.MustParse("http://example.com/a")
	b := parse.MustParse("http://example.com/b")

	issues.AddWarning(b, "404 Not Found")
	issues.AddError(a, "Redirection loop detected!")
	issues.AddWarning(b, "HTML validator: 2")

	assert.Equal(t, 2, issues.Len())
	assert.True(t, issues.HasErrors())
	assert.Equal(t, []parse.URL{b, a}, issues.URLs(), "URLs keep the order of their first issue")
	assert.Equal(t, []string{"404 Not Found", "HTML validator: 2"}, issues.Warnings(b))
	assert.Empty(t, issues.Errors(b))
	assert.Nil(t, issues.Warnings(parse.MustParse("http://example.com/none")))
}

func TestIssues_NoErrors(t *testing.T) {
	issues := NewIssues()
	issues.AddWarning(parse.MustParse("http://example.com/"), "302 Found (no redirect location given)")
	assert.False(t, issues.HasErrors())
}

// linkGraph builds a frontier where index links to old, which redirects to new
func linkGraph(t *testing.T) (*queue.Frontier, parse.URL, parse.URL, parse.URL) {
	t.Helper()
	index := parse.MustParse("http://example.com/")
	old := parse.MustParse("http://example.com/old")
	target := parse.MustParse("http://example.com/new")

	f := queue.NewFrontier()
	f.Push(old, index, queue.PendingFetch{}, false)
	_, err := f.PushRedirect(target, old, queue.PendingFetch{}, true)
	require.NoError(t, err)
	return f, index, old, target
}

func TestReferences(t *testing.T) {
	f, index, old, target := linkGraph(t)

	assert.Equal(t, []models.Reference{{URL: index.Full(), Via: []string{old.Full()}}}, References(f, target))
	assert.Empty(t, References(f, old), "links to a redirecting page move to its target")
	assert.Nil(t, References(nil, target))
}

func TestIssuesSplit(t *testing.T) {
	f, index, _, target := linkGraph(t)

	issues := NewIssues()
	issues.AddError(target, "Could not fetch data from server: timeout")
	issues.AddWarning(index, "CSS validator: 1")

	errs, warns := issues.Split(f)
	require.Len(t, errs, 1)
	require.Len(t, warns, 1)
	assert.Equal(t, target.Full(), errs[0].URL)
	assert.NotEmpty(t, errs[0].ReferencedBy)
	assert.Equal(t, []string{"CSS validator: 1"}, warns[0].Messages)
}

func TestPrinter_NoColor(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	p.Status("http://a/", 200, "OK")
	p.Status("http://a/x", 404, "Not Found")
	p.Notice("%s --> %s", "a", "b")

	assert.Equal(t, "http://a/ 200 OK\nhttp://a/x 404 Not Found\na --> b\n", buf.String())
}

func TestPrinter_Color(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true)

	p.Error("Redirection loop detected!")

	assert.Contains(t, buf.String(), "\x1b[31m")
	assert.Contains(t, buf.String(), "Redirection loop detected!")
}

func TestPrintSummary(t *testing.T) {
	f, index, old, target := linkGraph(t)

	issues := NewIssues()
	issues.AddWarning(target, "404 Not Found")
	issues.AddError(target, "HTML validator: 1")

	var buf bytes.Buffer
	PrintSummary(NewPrinter(&buf, false), issues, f)

	out := buf.String()
	assert.Contains(t, out, "1 urls with issues found!")
	assert.Contains(t, out, "\nhttp://example.com/new\nWarning: 404 Not Found\nError: HTML validator: 1\nReferenced by:\n")
	assert.Contains(t, out, "-> "+index.Full()+" (via "+old.Full()+")")
}

func TestPrintSummary_NoIssues(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(NewPrinter(&buf, false), NewIssues(), nil)
	assert.Empty(t, buf.String())
}

func sampleReport() *models.CrawlReport {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.CrawlReport{
		RunID:        NewRunID(),
		UserAgent:    "Webtestbot/0.1.0",
		StartURLs:    []string{"http://example.com/"},
		StartTime:    start,
		EndTime:      start.Add(time.Minute),
		PagesFetched: 12,
		Errors: []models.URLIssues{{
			URL:          "http://example.com/missing",
			Messages:     []string{"404 Not Found"},
			ReferencedBy: []models.Reference{{URL: "http://example.com/", Via: []string{"http://example.com/old"}}},
		}},
		ResultFiles: []string{"validation/html_result.txt"},
	}
}

func TestNewRunID(t *testing.T) {
	id := NewRunID()
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.NotEqual(t, id, NewRunID())
}

func TestWriteYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.yaml")
	rep := sampleReport()

	require.NoError(t, WriteYAML(path, rep))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded models.CrawlReport
	require.NoError(t, yaml.Unmarshal(data, &loaded))
	assert.Equal(t, rep.RunID, loaded.RunID)
	assert.Equal(t, 12, loaded.PagesFetched)
	require.Len(t, loaded.Errors, 1)
	assert.Equal(t, []string{"http://example.com/old"}, loaded.Errors[0].ReferencedBy[0].Via)
	assert.Contains(t, string(data), "validation_result_files:")
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleReport())

	assert.True(t, strings.HasPrefix(md, "# Crawl report\n"))
	assert.Contains(t, md, "| Pages fetched | 12 |")
	assert.Contains(t, md, "## Errors (1)")
	assert.Contains(t, md, "- 404 Not Found")
	assert.Contains(t, md, "- <http://example.com/> via http://example.com/old")
	assert.NotContains(t, md, "## Warnings")
}

func TestWriteHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.html")
	require.NoError(t, WriteHTML(path, sampleReport()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(data)

	assert.Contains(t, html, "<h1>Crawl report</h1>")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, `<a href="http://example.com/missing">`)
}

func TestWriteMarkdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")
	require.NoError(t, WriteMarkdown(path, sampleReport()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Markdown(sampleReport())[:15], string(data)[:15])
}
