package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// requireExactlyOne returns an error unless exactly one of the named flags
// was given on the command line.
func requireExactlyOne(flags *pflag.FlagSet, names ...string) error {
	var set []string
	for _, name := range names {
		if flags.Changed(name) {
			set = append(set, "--"+name)
		}
	}

	display := make([]string, len(names))
	for i, name := range names {
		display[i] = "--" + name
	}
	flagList := strings.Join(display, ", ")

	if len(set) == 0 {
		return fmt.Errorf("one of %s is required", flagList)
	}
	if len(set) > 1 {
		return fmt.Errorf("only one of %s can be specified", flagList)
	}
	return nil
}
