package report

import (
	"strings"
)

// PrintSummary lists every URL with issues followed by the pages referencing it
// Nothing is printed when there are no issues
func PrintSummary(p *Printer, issues *Issues, graph LinkGraph) {
	if issues.Len() == 0 {
		return
	}

	headline := p.Warning
	if issues.HasErrors() {
		headline = p.Error
	}
	headline("\n%d urls with issues found!", issues.Len())

	for _, u := range issues.URLs() {
		errs, warns := issues.Errors(u), issues.Warnings(u)
		if len(errs) > 0 {
			p.Error("\n%s", u.Full())
		} else {
			p.Warning("\n%s", u.Full())
		}
		for _, w := range warns {
			p.Warning("Warning: %s", w)
		}
		for _, e := range errs {
			p.Error("Error: %s", e)
		}

		refs := References(graph, u)
		if len(refs) == 0 {
			continue
		}
		p.Plain("Referenced by:")
		for _, ref := range refs {
			if len(ref.Via) == 0 {
				p.Plain("-> %s", ref.URL)
				continue
			}
			p.Plain("-> %s (via %s)", ref.URL, strings.Join(ref.Via, " -> "))
		}
	}
}

// PrintResultFiles tells where the validation results were saved
func PrintResultFiles(p *Printer, files map[string]string, order []string) {
	for _, name := range order {
		if path, ok := files[name]; ok {
			p.Plain("\n%s validation issues saved to %s", name, path)
		}
	}
}
