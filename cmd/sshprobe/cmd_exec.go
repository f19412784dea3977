package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vertti/sshprobe/pkg/predicate"
)

var (
	execEquals   string
	execGT       int64
	execCompare  string
	execMatch    string
	execSemver   string
	execJSONPath string
	execNot      bool
	execLine     int
	execPrint    bool
	execName     string
)

var execCmd = &cobra.Command{
	Use:   "exec <command>",
	Short: "Run a shell command and test its answer",
	Long: "Run a shell command in an interactive shell on each host and test the first line of its output.\n" +
		"Exactly one of --equals, --gt, --compare, --match or --semver selects the test.",
	Example: `  sshprobe exec "systemctl is-active nginx" --equals active
  sshprobe exec "nproc" --compare ">= 4"
  sshprobe exec "nginx -v 2>&1 | cut -d/ -f2" --semver ">= 1.20"
  sshprobe exec "curl -s localhost:8080/health" --json-path status --equals UP`,
	Args: cobra.ExactArgs(1),
	RunE: runExecProbe,
}

func init() {
	f := execCmd.Flags()
	f.StringVar(&execEquals, "equals", "", "pass when the output equals this string")
	f.Int64Var(&execGT, "gt", 0, "pass when the output is an integer greater than this")
	f.StringVar(&execCompare, "compare", "", `integer comparison "<op> <n>", op one of eq ne gt ge lt le or == != > >= < <=`)
	f.StringVar(&execMatch, "match", "", "pass when the output matches this regular expression")
	f.StringVar(&execSemver, "semver", "", `pass when the output is a version satisfying this constraint, e.g. ">= 1.20, < 2"`)
	f.StringVar(&execJSONPath, "json-path", "", "read the output as JSON and test the value at this path")
	f.BoolVar(&execNot, "not", false, "invert the test")
	f.IntVar(&execLine, "line", predicate.TargetLine, "output line to test, counted after the echoed command line 0")
	f.BoolVar(&execPrint, "print", false, "print only the tested output")
	f.StringVar(&execName, "name", "exec", "name shown in the result")
	rootCmd.AddCommand(execCmd)
}

func runExecProbe(cmd *cobra.Command, args []string) error {
	pred, err := execPredicate(cmd.Flags())
	if err != nil {
		return err
	}
	if execLine < 1 {
		return fmt.Errorf("--line must be at least 1, got %d", execLine)
	}

	return runProbe(cmd, probeSpec{
		name:      execName,
		command:   args[0],
		predicate: pred,
		line:      execLine,
		print:     execPrint,
	})
}

func execPredicate(flags *pflag.FlagSet) (predicate.Predicate, error) {
	if err := requireExactlyOne(flags, "equals", "gt", "compare", "match", "semver"); err != nil {
		return nil, err
	}

	var (
		p   predicate.Predicate
		err error
	)
	switch {
	case flags.Changed("equals"):
		p = predicate.Equals(execEquals)
	case flags.Changed("gt"):
		p = predicate.NumericGreaterThan(execGT)
	case flags.Changed("compare"):
		p, err = parseCompare(execCompare)
	case flags.Changed("match"):
		p, err = predicate.Matches(execMatch)
	case flags.Changed("semver"):
		p, err = predicate.Version(execSemver)
	}
	if err != nil {
		return nil, err
	}

	if execJSONPath != "" {
		p = predicate.JSONField(execJSONPath, p)
	}
	if execNot {
		p = predicate.Not(p)
	}
	return p, nil
}

// parseCompare parses "<op> <n>", e.g. ">= 4" or "ne 0".
func parseCompare(s string) (predicate.Predicate, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return nil, fmt.Errorf(`--compare wants "<op> <n>", got %q`, s)
	}
	op, err := predicate.ParseOp(fields[0])
	if err != nil {
		return nil, err
	}
	n, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("--compare: %q is not an integer", fields[1])
	}
	return predicate.NumericCompare(op, n), nil
}
