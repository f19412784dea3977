package probefile

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestFindFile_ExplicitPath(t *testing.T) {
	tmpDir := t.TempDir()
	probePath := filepath.Join(tmpDir, "checks.sshprobe")
	if err := os.WriteFile(probePath, []byte("service nginx"), 0o600); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	found, err := FindFile(tmpDir, probePath)
	if err != nil {
		t.Fatalf("FindFile failed: %v", err)
	}
	if found != probePath {
		t.Errorf("expected %q, got %q", probePath, found)
	}

	_, err = FindFile(tmpDir, filepath.Join(tmpDir, "nonexistent"))
	if err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestFindFile_TraverseUp(t *testing.T) {
	tmpDir := t.TempDir()

	subdir2 := filepath.Join(tmpDir, "subdir1", "subdir2")
	if err := os.MkdirAll(subdir2, 0o700); err != nil {
		t.Fatalf("failed to create directories: %v", err)
	}

	probePath := filepath.Join(tmpDir, FileName)
	if err := os.WriteFile(probePath, []byte("service nginx"), 0o600); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	found, err := FindFile(subdir2, "")
	if err != nil {
		t.Fatalf("FindFile failed: %v", err)
	}
	if found != probePath {
		t.Errorf("expected %q, got %q", probePath, found)
	}
}

func TestFindFile_StopAtGit(t *testing.T) {
	tmpDir := t.TempDir()

	projectDir := filepath.Join(tmpDir, "project")
	if err := os.MkdirAll(filepath.Join(projectDir, ".git"), 0o700); err != nil {
		t.Fatalf("failed to create directories: %v", err)
	}
	subDir := filepath.Join(projectDir, "deploy")
	if err := os.MkdirAll(subDir, 0o700); err != nil {
		t.Fatalf("failed to create directories: %v", err)
	}

	// above the repository root, must not be found
	if err := os.WriteFile(filepath.Join(tmpDir, FileName), []byte("service nginx"), 0o600); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	if _, err := FindFile(subDir, ""); err == nil {
		t.Error("expected search to stop at the .git directory")
	}

	projectProbe := filepath.Join(projectDir, FileName)
	if err := os.WriteFile(projectProbe, []byte("service nginx"), 0o600); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	found, err := FindFile(subDir, "")
	if err != nil {
		t.Fatalf("FindFile failed: %v", err)
	}
	if found != projectProbe {
		t.Errorf("expected %q, got %q", projectProbe, found)
	}
}

func TestParseFile(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected []Line
	}{
		{
			name: "basic commands",
			content: `service nginx
mode /etc/nsswitch.conf --want 644
sshprobe sql "select count(*) from jobs" --db app`,
			expected: []Line{
				{Number: 1, Text: "service nginx", Args: []string{"service", "nginx"}},
				{Number: 2, Text: "mode /etc/nsswitch.conf --want 644", Args: []string{"mode", "/etc/nsswitch.conf", "--want", "644"}},
				{Number: 3, Text: `sshprobe sql "select count(*) from jobs" --db app`, Args: []string{"sql", "select count(*) from jobs", "--db", "app"}},
			},
		},
		{
			name: "with comments and empty lines",
			content: `# web tier
service nginx

# files
exec 'stat -c "%a" /etc/hosts' --equals 644
`,
			expected: []Line{
				{Number: 2, Text: "service nginx", Args: []string{"service", "nginx"}},
				{Number: 5, Text: `exec 'stat -c "%a" /etc/hosts' --equals 644`, Args: []string{"exec", `stat -c "%a" /etc/hosts`, "--equals", "644"}},
			},
		},
		{
			name:     "empty file",
			content:  ``,
			expected: []Line{},
		},
		{
			name: "only comments and empty lines",
			content: `# Comment 1

# Comment 2
`,
			expected: []Line{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatalf("failed to create test file: %v", err)
			}

			lines, err := ParseFile(path)
			if err != nil {
				t.Fatalf("ParseFile failed: %v", err)
			}

			if !reflect.DeepEqual(lines, tt.expected) {
				t.Errorf("expected %#v, got %#v", tt.expected, lines)
			}
		})
	}
}

func TestParseFile_UnterminatedQuote(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("service nginx\nexec 'uptime\n"), 0o600); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	if _, err := ParseFile(path); err == nil {
		t.Error("expected error for unterminated quote")
	}
}

func TestSplitArgs_Errors(t *testing.T) {
	for _, in := range []string{`exec 'uptime`, `exec "uptime`, `exec uptime\`} {
		if _, err := SplitArgs(in); err == nil {
			t.Errorf("SplitArgs(%q) expected error", in)
		}
	}
}

func TestParseFile_Nonexistent(t *testing.T) {
	_, err := ParseFile("/nonexistent/file")
	if err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"service nginx", []string{"service", "nginx"}},
		{"  a \t b  ", []string{"a", "b"}},
		{`exec "echo \"hi\""`, []string{"exec", `echo "hi"`}},
		{`exec 'a\b'`, []string{"exec", `a\b`}},
		{`--equals ''`, []string{"--equals", ""}},
		{`pre"fix"ed`, []string{"prefixed"}},
		{`exec foo\ bar --equals x`, []string{"exec", "foo bar", "--equals", "x"}},
		{`exec "a\$b"`, []string{"exec", "a$b"}},
		{`exec 'ps aux | grep nginx' --match nginx`, []string{"exec", "ps aux | grep nginx", "--match", "nginx"}},
		{"", nil},
	}

	for _, tt := range tests {
		got, err := SplitArgs(tt.in)
		if err != nil {
			t.Fatalf("SplitArgs(%q) error: %v", tt.in, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitArgs(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}
