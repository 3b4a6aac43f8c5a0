package report

import (
	"github.com/Sriram-PR/webtest/pkg/models"
	"github.com/Sriram-PR/webtest/pkg/parse"
	"github.com/Sriram-PR/webtest/pkg/queue"
)

type urlIssues struct {
	url      parse.URL
	errors   []string
	warnings []string
}

// Issues collects the errors and warnings found per URL, in order of first report
// Issues is not safe for concurrent use
type Issues struct {
	byKey map[string]*urlIssues
	order []*urlIssues
}

// NewIssues creates an empty collection
func NewIssues() *Issues {
	return &Issues{byKey: make(map[string]*urlIssues)}
}

func (i *Issues) entry(u parse.URL) *urlIssues {
	key := u.HashKey()
	if e, ok := i.byKey[key]; ok {
		return e
	}
	e := &urlIssues{url: u}
	i.byKey[key] = e
	i.order = append(i.order, e)
	return e
}

// AddError records an error message for u
func (i *Issues) AddError(u parse.URL, msg string) {
	e := i.entry(u)
	e.errors = append(e.errors, msg)
}

// AddWarning records a warning message for u
func (i *Issues) AddWarning(u parse.URL, msg string) {
	e := i.entry(u)
	e.warnings = append(e.warnings, msg)
}

// URLs returns every URL with at least one issue
func (i *Issues) URLs() []parse.URL {
	out := make([]parse.URL, len(i.order))
	for n, e := range i.order {
		out[n] = e.url
	}
	return out
}

// Errors returns the errors recorded for u
func (i *Issues) Errors(u parse.URL) []string {
	if e, ok := i.byKey[u.HashKey()]; ok {
		return e.errors
	}
	return nil
}

// Warnings returns the warnings recorded for u
func (i *Issues) Warnings(u parse.URL) []string {
	if e, ok := i.byKey[u.HashKey()]; ok {
		return e.warnings
	}
	return nil
}

// Len is the number of URLs with issues
func (i *Issues) Len() int { return len(i.order) }

// HasErrors reports whether any URL has an error
func (i *Issues) HasErrors() bool {
	for _, e := range i.order {
		if len(e.errors) > 0 {
			return true
		}
	}
	return false
}

// LinkGraph is what the report needs to know about who links where
type LinkGraph interface {
	References(u parse.URL) []parse.URL
	Roads(u, referrer parse.URL) []queue.Road
}

// References lists the pages linking to u with the redirects crossed to reach it
func References(graph LinkGraph, u parse.URL) []models.Reference {
	if graph == nil {
		return nil
	}
	var out []models.Reference
	for _, page := range graph.References(u) {
		roads := graph.Roads(u, page)
		if len(roads) == 0 {
			out = append(out, models.Reference{URL: page.Full()})
			continue
		}
		for _, road := range roads {
			ref := models.Reference{URL: page.Full()}
			for _, hop := range road {
				ref.Via = append(ref.Via, hop.Full())
			}
			out = append(out, ref)
		}
	}
	return out
}

// Split returns the URLs with errors and the URLs with warnings in report form
func (i *Issues) Split(graph LinkGraph) (errs, warns []models.URLIssues) {
	for _, e := range i.order {
		refs := References(graph, e.url)
		if len(e.errors) > 0 {
			errs = append(errs, models.URLIssues{URL: e.url.Full(), Messages: e.errors, ReferencedBy: refs})
		}
		if len(e.warnings) > 0 {
			warns = append(warns, models.URLIssues{URL: e.url.Full(), Messages: e.warnings, ReferencedBy: refs})
		}
	}
	return errs, warns
}
