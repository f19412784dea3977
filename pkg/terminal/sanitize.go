// Package terminal cleans raw PTY output into logical text lines.
package terminal

import (
	"bytes"
	"regexp"
	"strings"
)

// ansiEscape matches an ESC followed by a single Fe control character
// (@-Z, \, ], ^, _) or a CSI sequence: '[', parameter bytes, intermediate
// bytes and one final byte in @-~.
var ansiEscape = regexp.MustCompile(`\x1b(?:[@-Z\\-_]|\[[0-?]*[ -/]*[@-~])`)

// StripANSI removes every ANSI/VT control sequence from b.
// Removal is repeated until nothing matches, so sequences that only form
// after an inner sequence is removed (ESC ESC[0m [A) are removed too.
func StripANSI(b []byte) []byte {
	for ansiEscape.Match(b) {
		b = ansiEscape.ReplaceAll(b, nil)
	}
	return b
}

// StripCR removes every carriage return, wherever it appears.
func StripCR(b []byte) []byte {
	return bytes.ReplaceAll(b, []byte{'\r'}, nil)
}

// Clean applies StripCR and then StripANSI. The result is stable:
// Clean(Clean(b)) equals Clean(b). Carriage returns go first because
// dropping one can join an ESC with the bytes that follow it.
func Clean(b []byte) []byte {
	return StripANSI(StripCR(b))
}

// Sanitize cleans raw and splits it on '\n'. Empty lines are kept so that
// callers can rely on line positions.
func Sanitize(raw []byte) []string {
	return strings.Split(string(Clean(raw)), "\n")
}
