package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/webtest/pkg/models"
	"github.com/Sriram-PR/webtest/pkg/utils"
)

// NewRunID returns a fresh identifier for a crawl run
func NewRunID() string {
	return uuid.NewString()
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: creating directory '%s': %w", utils.ErrFilesystem, dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: writing '%s': %w", utils.ErrFilesystem, path, err)
	}
	return nil
}

// WriteYAML saves the crawl report as YAML
func WriteYAML(path string, rep *models.CrawlReport) error {
	data, err := yaml.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshaling crawl report: %w", err)
	}
	return writeFile(path, data)
}

// Markdown renders the crawl report as a Markdown document
func Markdown(rep *models.CrawlReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Crawl report\n\n")
	fmt.Fprintf(&b, "| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Run | `%s` |\n", rep.RunID)
	fmt.Fprintf(&b, "| User agent | `%s` |\n", rep.UserAgent)
	fmt.Fprintf(&b, "| Started | %s |\n", rep.StartTime.Format(time.RFC3339))
	fmt.Fprintf(&b, "| Finished | %s |\n", rep.EndTime.Format(time.RFC3339))
	fmt.Fprintf(&b, "| Pages fetched | %d |\n", rep.PagesFetched)
	if rep.Interrupted {
		fmt.Fprintf(&b, "| Interrupted | yes |\n")
	}

	b.WriteString("\n## Start URLs\n\n")
	for _, u := range rep.StartURLs {
		fmt.Fprintf(&b, "- <%s>\n", u)
	}

	section := func(title string, list []models.URLIssues) {
		if len(list) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n## %s (%d)\n", title, len(list))
		for _, entry := range list {
			fmt.Fprintf(&b, "\n### <%s>\n\n", entry.URL)
			for _, msg := range entry.Messages {
				fmt.Fprintf(&b, "- %s\n", msg)
			}
			if len(entry.ReferencedBy) == 0 {
				continue
			}
			b.WriteString("\nReferenced by:\n\n")
			for _, ref := range entry.ReferencedBy {
				if len(ref.Via) == 0 {
					fmt.Fprintf(&b, "- <%s>\n", ref.URL)
				} else {
					fmt.Fprintf(&b, "- <%s> via %s\n", ref.URL, strings.Join(ref.Via, " → "))
				}
			}
		}
	}
	section("Errors", rep.Errors)
	section("Warnings", rep.Warnings)

	if len(rep.ResultFiles) > 0 {
		b.WriteString("\n## Validation results\n\n")
		for _, f := range rep.ResultFiles {
			fmt.Fprintf(&b, "- `%s`\n", f)
		}
	}
	return b.String()
}

// WriteMarkdown saves the Markdown rendering of the crawl report
func WriteMarkdown(path string, rep *models.CrawlReport) error {
	return writeFile(path, []byte(Markdown(rep)))
}

// WriteHTML saves the crawl report as a standalone HTML page
func WriteHTML(path string, rep *models.CrawlReport) error {
	md := goldmark.New(goldmark.WithExtensions(extension.Table, extension.Linkify))

	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(rep)), &body); err != nil {
		return fmt.Errorf("rendering HTML report: %w", err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>Crawl report</title></head><body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body></html>\n")
	return writeFile(path, page.Bytes())
}
