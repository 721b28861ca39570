package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/sambabib/sustainable-electron/pkg/finding"
)

const messageLimit = 100 // Max characters for the message column

// PrintTextReport prints findings grouped by file in a tabular text format
func PrintTextReport(w io.Writer, results []FileResult) {
	results = Sorted(results)
	if len(results) == 0 {
		fmt.Fprintln(w, applyStyle(mutedStyle, "No findings."))
		return
	}

	for _, r := range results {
		fmt.Fprintln(w, applyStyle(filePathStyle, r.Path))

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, f := range r.Findings {
			writeRow(tw, f)
		}
		tw.Flush()
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%d findings in %d files\n", Count(results), len(results))
}

// writeRow prints one finding. The styled severity sits in the last column so
// escape sequences do not disturb alignment.
func writeRow(w io.Writer, f finding.Finding) {
	message := strings.ReplaceAll(f.Message, "\t", " ")
	if len(message) > messageLimit {
		message = message[:messageLimit-3] + "..."
	}
	severity := applyStyle(severityStyle(f.Severity), fmt.Sprintf("%-11s", f.Severity))
	fmt.Fprintf(w, "  %d:%d\t%s\t%s %s\n",
		f.Location.Line+1,
		f.Location.StartColumn+1,
		f.Code,
		severity,
		message,
	)
}
