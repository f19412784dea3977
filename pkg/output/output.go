package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jwalton/go-supportscolor"

	"github.com/vertti/sshprobe/pkg/check"
)

var (
	green  = "\033[32m"
	red    = "\033[31m"
	yellow = "\033[33m"
	dim    = "\033[2m"
	reset  = "\033[0m"
)

func init() {
	if !supportscolor.Stdout().SupportsColor {
		green, red, yellow, dim, reset = "", "", "", "", ""
	}
}

// PrintResult outputs a check result with colored status to stdout.
func PrintResult(r check.Result) {
	FprintResult(os.Stdout, r)
}

// FprintResult writes r to w. Details are indented to line up with the name.
func FprintResult(w io.Writer, r check.Result) {
	var color, label string
	switch r.Status {
	case check.StatusOK:
		color, label = green, "[OK]"
	case check.StatusFail:
		color, label = red, "[FAIL]"
	default:
		color, label = yellow, "[ERROR]"
	}
	fmt.Fprintf(w, "%s%s%s %s\n", color, label, reset, r.Name)

	indent := strings.Repeat(" ", len(label)+1)
	for _, d := range r.Details {
		fmt.Fprintf(w, "%s%s\n", indent, formatLabel(d))
	}
}

// formatLabel dims the "label:" prefix of a detail line.
func formatLabel(detail string) string {
	label, rest, ok := strings.Cut(detail, ":")
	if !ok {
		return detail
	}
	return dim + label + ":" + reset + rest
}
