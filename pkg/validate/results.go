package validate

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Sriram-PR/webtest/pkg/utils"
)

// WriteResultFile writes the results of one service under dir and returns the file path
// Each URL with issues gets its line followed by one line per message and a blank line
func WriteResultFile(dir string, kind Kind, results []Result) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("%w: creating result directory '%s': %w", utils.ErrFilesystem, dir, err)
	}
	path := filepath.Join(dir, kind.ResultFile())
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: creating result file '%s': %w", utils.ErrFilesystem, path, err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	for _, res := range results {
		if !res.HasIssues() {
			continue
		}
		fmt.Fprintln(w, res.URL.Full())
		for _, m := range res.Messages {
			fmt.Fprintln(w, m.String())
		}
		fmt.Fprintln(w)
	}
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("%w: writing result file '%s': %w", utils.ErrFilesystem, path, err)
	}
	return path, nil
}
