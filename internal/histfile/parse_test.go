package histfile

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Bash ---

func TestParseBash_Basic(t *testing.T) {
	entries, err := ParseBash(strings.NewReader("ls -la\ngit status\necho hello\n"))
	require.NoError(t, err)

	assert.Len(t, entries, 3)
	assert.Equal(t, "ls -la", entries[0].Command)
	assert.Equal(t, "git status", entries[1].Command)
	assert.True(t, entries[0].Timestamp.IsZero())
}

func TestParseBash_WithTimestamps(t *testing.T) {
	content := `#1706000001
ls -la
#1706000002
git status
echo hello
`
	entries, err := ParseBash(strings.NewReader(content))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, time.Unix(1706000001, 0), entries[0].Timestamp)
	assert.Equal(t, time.Unix(1706000002, 0), entries[1].Timestamp)
	assert.True(t, entries[2].Timestamp.IsZero())
}

func TestParseBash_CommentThatIsNotTimestamp(t *testing.T) {
	entries, err := ParseBash(strings.NewReader("#not-a-ts\nls\n"))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "#not-a-ts", entries[0].Command)
}

func TestParseBash_SkipsEmptyLines(t *testing.T) {
	entries, err := ParseBash(strings.NewReader("ls\n\n\npwd\n"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

// --- Zsh ---

func TestParseZsh_ExtendedFormat(t *testing.T) {
	content := `: 1706000001:0;ls -la
: 1706000002:5;git push
`
	entries, err := ParseZsh(strings.NewReader(content))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "ls -la", entries[0].Command)
	assert.Equal(t, time.Unix(1706000001, 0), entries[0].Timestamp)
	assert.Equal(t, "git push", entries[1].Command)
}

func TestParseZsh_PlainFormat(t *testing.T) {
	entries, err := ParseZsh(strings.NewReader("ls\npwd\n"))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Timestamp.IsZero())
}

func TestParseZsh_MultilineContinuation(t *testing.T) {
	content := `: 1706000001:0;echo one \
two \
three
: 1706000002:0;pwd
`
	entries, err := ParseZsh(strings.NewReader(content))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "echo one \ntwo \nthree", entries[0].Command)
	assert.Equal(t, time.Unix(1706000001, 0), entries[0].Timestamp)
	assert.Equal(t, "pwd", entries[1].Command)
}

func TestParseZsh_EscapedBackslashIsNotContinuation(t *testing.T) {
	entries, err := ParseZsh(strings.NewReader(`echo a\\` + "\npwd\n"))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, `echo a\\`, entries[0].Command)
}

func TestParseZsh_UnterminatedMultilineFlushed(t *testing.T) {
	entries, err := ParseZsh(strings.NewReader("echo one \\\n"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "echo one ", entries[0].Command)
}

// --- Fish ---

func TestParseFish_Basic(t *testing.T) {
	content := `- cmd: ls -la
  when: 1706000001
- cmd: git status
  when: 1706000002
`
	entries, err := ParseFish(strings.NewReader(content))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "ls -la", entries[0].Command)
	assert.Equal(t, time.Unix(1706000002, 0), entries[1].Timestamp)
}

func TestParseFish_IgnoresPaths(t *testing.T) {
	content := `- cmd: vim notes.txt
  when: 1706000001
  paths:
    - notes.txt
- cmd: pwd
  when: 1706000002
`
	entries, err := ParseFish(strings.NewReader(content))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "pwd", entries[1].Command)
}

func TestParseFish_DecodesEscapes(t *testing.T) {
	content := `- cmd: echo line1\nline2
  when: 1706000001
- cmd: echo back\\slash
  when: 1706000002
`
	entries, err := ParseFish(strings.NewReader(content))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "echo line1\nline2", entries[0].Command)
	assert.Equal(t, `echo back\slash`, entries[1].Command)
}

// --- Helpers ---

func TestTrimToLimit(t *testing.T) {
	entries := []Entry{{Command: "a"}, {Command: "b"}, {Command: "c"}}

	trimmed := trimToLimit(entries, 2)
	require.Len(t, trimmed, 2)
	assert.Equal(t, "b", trimmed[0].Command)
	assert.Equal(t, "c", trimmed[1].Command)

	assert.Len(t, trimToLimit(entries, 5), 3)
	assert.Len(t, trimToLimit(entries, 0), 3)
}

func TestDetectShell(t *testing.T) {
	t.Setenv("SHELL", "/usr/bin/zsh")
	assert.Equal(t, "zsh", DetectShell())

	t.Setenv("SHELL", "/bin/weirdsh")
	assert.Equal(t, "", DetectShell())
}

func TestParseFile_MissingFile(t *testing.T) {
	entries, err := ParseFile("bash", "/nonexistent/history")
	require.NoError(t, err)
	assert.Nil(t, entries)
}
