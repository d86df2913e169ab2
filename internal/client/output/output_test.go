package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T, input string) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	oldStdout, oldStderr, oldStdin, oldNoColor := Stdout, Stderr, Stdin, color.NoColor
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	Stdout, Stderr, Stdin = stdout, stderr, strings.NewReader(input)
	color.NoColor = true
	t.Cleanup(func() {
		Stdout, Stderr, Stdin, color.NoColor = oldStdout, oldStderr, oldStdin, oldNoColor
	})
	return stdout, stderr
}

func TestMessages(t *testing.T) {
	_, stderr := captureOutput(t, "")

	Successf("saved %s", "rb-1")
	Infof("running")
	Warningf("careful")
	Errorf("broken: %d", 3)

	assert.Equal(t, "✓ saved rb-1\n→ running\n⚠ careful\n✗ broken: 3\n", stderr.String())
}

func TestKeyValue(t *testing.T) {
	stdout, _ := captureOutput(t, "")

	KeyValue("Version", "3")
	KeyValue("Job ID", "j-1")

	assert.Equal(t, "  Version: 3\n  Job ID: j-1\n", stdout.String())
}

func TestTable(t *testing.T) {
	stdout, _ := captureOutput(t, "")

	Table([]string{"ID", "Title"}, [][]string{
		{"rb-1", "Deploy"},
		{"rb-22", "Rotate keys"},
	})

	lines := strings.Split(strings.TrimRight(stdout.String(), "\n"), "\n")
	assert.Len(t, lines, 4)
	assert.Equal(t, "ID     Title        ", lines[0])
	assert.Equal(t, "rb-22  Rotate keys  ", lines[3])
}

func TestTable_NoHeaders(t *testing.T) {
	stdout, _ := captureOutput(t, "")
	Table(nil, [][]string{{"x"}})
	assert.Empty(t, stdout.String())
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			captureOutput(t, tt.input)
			assert.Equal(t, tt.want, Confirm("Delete runbook?"))
		})
	}
}

func TestPrompt_ReadsWholeLines(t *testing.T) {
	captureOutput(t, "Restart web tier\nsecond line\n")

	assert.Equal(t, "Restart web tier", Prompt("Title"))
	assert.Equal(t, "second line", Prompt("Description"))
	assert.Equal(t, "", Prompt("Tags"))
}

func TestStatusBadge(t *testing.T) {
	captureOutput(t, "")

	for _, status := range []string{"pending", "running", "completed", "failed", "custom"} {
		assert.Equal(t, "● "+status, StatusBadge(status))
	}
}

func TestDuration(t *testing.T) {
	assert.Equal(t, "45s", Duration(45*time.Second))
	assert.Equal(t, "2m 5s", Duration(125*time.Second))
	assert.Equal(t, "1h 30m", Duration(90*time.Minute))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcd…", Truncate("abcdefgh", 5))
	assert.Equal(t, "a b", Truncate("a\nb", 10))
	assert.Equal(t, "unbounded", Truncate("unbounded", 0))
}
