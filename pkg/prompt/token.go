package prompt

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// tokenPrefix keeps tokens recognisable in logs.
const tokenPrefix = "SSHPROBE-"

// Token is the string installed as the remote shell prompt. It is random per
// session so it never matches ordinary command output.
type Token string

// NewToken returns a fresh token such as "SSHPROBE-3f2a9c1d4b5e6f70#".
func NewToken() Token {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return Token(tokenPrefix + id[:16] + "#")
}

// String implements fmt.Stringer.
func (t Token) String() string {
	return string(t)
}

// SetCommand returns the shell line that makes t the primary prompt, clears
// the continuation prompt and drops PROMPT_COMMAND. The token is written as
// two adjacent single-quoted halves, so the echo of this line never contains
// the token itself while the shell still joins the halves into PS1.
func (t Token) SetCommand() string {
	s := string(t)
	mid := len(s) / 2
	return fmt.Sprintf("unset PROMPT_COMMAND; PS1='%s''%s'; PS2=''", s[:mid], s[mid:])
}
