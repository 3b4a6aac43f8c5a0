package crawler

import (
	"context"
	"errors"
	"time"

	"github.com/Sriram-PR/webtest/pkg/models"
	"github.com/Sriram-PR/webtest/pkg/report"
	"github.com/Sriram-PR/webtest/pkg/validate"
)

// finish joins the validators, folds their findings into the issues, then prints and saves the reports
func (c *Crawler) finish(ctx context.Context, startTime time.Time, interrupted bool) (*models.CrawlReport, error) {
	var errs []error

	c.pool.Close()
	results, err := c.pool.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		errs = append(errs, err)
	}

	files := make(map[string]string)
	var order, paths []string
	if !c.pool.Empty() {
		for _, kind := range validate.Kinds {
			if !c.pool.Enabled(kind) {
				continue
			}
			for _, res := range results[kind] {
				if res.Warnings > 0 {
					c.issues.AddWarning(res.URL, res.WarningSummary())
				}
				if res.Errors > 0 {
					c.issues.AddError(res.URL, res.ErrorSummary())
				}
			}
			path, err := validate.WriteResultFile(c.cfg.Validators.ResultDir, kind, results[kind])
			if err != nil {
				c.log.WithField("service", kind).Errorf("Failed to write validation results: %v", err)
				errs = append(errs, err)
				continue
			}
			files[kind.Label()] = path
			order = append(order, kind.Label())
			paths = append(paths, path)
		}
	}

	report.PrintSummary(c.printer, c.issues, c.frontier)
	report.PrintResultFiles(c.printer, files, order)

	issueErrs, issueWarns := c.issues.Split(c.frontier)
	rep := &models.CrawlReport{
		RunID:        report.NewRunID(),
		UserAgent:    c.cfg.UserAgent,
		StartTime:    startTime,
		EndTime:      c.now(),
		Interrupted:  interrupted,
		PagesFetched: c.fetched,
		Errors:       issueErrs,
		Warnings:     issueWarns,
		ResultFiles:  paths,
	}
	for _, u := range c.starts {
		rep.StartURLs = append(rep.StartURLs, u.Full())
	}

	if err := c.writeReports(ctx, rep); err != nil {
		errs = append(errs, err)
	}
	return rep, errors.Join(errs...)
}

// writeReports saves every report file the configuration names
func (c *Crawler) writeReports(ctx context.Context, rep *models.CrawlReport) error {
	var errs []error
	save := func(path, what string, write func(string, *models.CrawlReport) error) {
		if path == "" {
			return
		}
		if err := write(path, rep); err != nil {
			c.log.Errorf("Failed to write %s report: %v", what, err)
			errs = append(errs, err)
			return
		}
		c.log.WithField("path", path).Infof("Wrote %s report", what)
	}
	save(c.cfg.Report.YAMLFile, "YAML", report.WriteYAML)
	save(c.cfg.Report.MarkdownFile, "Markdown", report.WriteMarkdown)
	save(c.cfg.Report.HTMLFile, "HTML", report.WriteHTML)

	if path := c.cfg.Report.VisitedFile; path != "" {
		if err := c.store.WriteVisitedLog(path); err != nil {
			c.log.Errorf("Failed to write visited log: %v", err)
			errs = append(errs, err)
		}
	}
	if ctx.Err() == nil {
		if n, err := c.store.Count(); err == nil {
			c.log.Infof("Page store holds %d pages", n)
		}
	}
	return errors.Join(errs...)
}
