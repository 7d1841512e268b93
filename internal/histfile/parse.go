// Package histfile parses existing shell history files and replays them
// into the history store.
package histfile

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultMaxEntries caps how many entries an import keeps. Only the most
// recent entries survive the cap.
const DefaultMaxEntries = 25000

// Entry is one parsed history line.
type Entry struct {
	Timestamp time.Time // Zero when the file carries no timestamps
	Command   string
}

// scanBufSize accommodates pathological single-line commands.
const scanBufSize = 1024 * 1024

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), scanBufSize)
	return scanner
}

// ParseBash parses bash history: one command per line, optionally preceded
// by a #<unix_ts> timestamp marker when HISTTIMEFORMAT is set.
func ParseBash(r io.Reader) ([]Entry, error) {
	var entries []Entry
	var pending time.Time

	scanner := newScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") && len(line) > 1 {
			if ts, err := strconv.ParseInt(line[1:], 10, 64); err == nil {
				pending = time.Unix(ts, 0)
				continue
			}
		}

		entries = append(entries, Entry{Command: line, Timestamp: pending})
		pending = time.Time{}
	}
	return entries, scanner.Err()
}

// ParseZsh parses zsh history, including the extended format
// `: <timestamp>:<duration>;<command>` and backslash-continued multiline
// commands.
func ParseZsh(r io.Reader) ([]Entry, error) {
	var p zshParser

	scanner := newScanner(r)
	for scanner.Scan() {
		p.processLine(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return p.finish(), nil
}

type zshParser struct {
	multiline strings.Builder
	pending   time.Time
	entries   []Entry
}

func (p *zshParser) processLine(line string) {
	if p.multiline.Len() > 0 {
		p.continueMultiline(line)
		return
	}

	if strings.HasPrefix(line, ": ") {
		if idx := strings.Index(line, ";"); idx != -1 {
			meta := line[2:idx] // "<ts>:<dur>"
			if colonIdx := strings.Index(meta, ":"); colonIdx != -1 {
				if ts, err := strconv.ParseInt(meta[:colonIdx], 10, 64); err == nil {
					p.pending = time.Unix(ts, 0)
				}
			}
			p.addCommand(line[idx+1:])
			return
		}
	}
	p.addCommand(line)
}

func (p *zshParser) continueMultiline(line string) {
	if hasUnescapedTrailingBackslash(line) {
		p.multiline.WriteString(line[:len(line)-1])
		p.multiline.WriteString("\n")
		return
	}
	p.multiline.WriteString(line)
	p.emit(p.multiline.String())
	p.multiline.Reset()
}

func (p *zshParser) addCommand(cmd string) {
	if hasUnescapedTrailingBackslash(cmd) {
		p.multiline.WriteString(cmd[:len(cmd)-1])
		p.multiline.WriteString("\n")
		return
	}
	if cmd != "" {
		p.emit(cmd)
	}
}

func (p *zshParser) emit(cmd string) {
	p.entries = append(p.entries, Entry{Command: cmd, Timestamp: p.pending})
	p.pending = time.Time{}
}

func (p *zshParser) finish() []Entry {
	if p.multiline.Len() > 0 {
		p.emit(strings.TrimSuffix(p.multiline.String(), "\n"))
		p.multiline.Reset()
	}
	return p.entries
}

// hasUnescapedTrailingBackslash reports whether a line ends with a
// continuation backslash (an odd run of trailing backslashes).
func hasUnescapedTrailingBackslash(s string) bool {
	n := 0
	for i := len(s) - 1; i >= 0 && s[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

// ParseFish parses fish's pseudo-YAML history:
//
//   - cmd: <command>
//     when: <unix_timestamp>
func ParseFish(r io.Reader) ([]Entry, error) {
	p := &fishParser{}

	scanner := newScanner(r)
	for scanner.Scan() {
		p.parseLine(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return p.finish(), nil
}

type fishParser struct {
	current time.Time
	cmd     string
	entries []Entry
	inPaths bool
}

func (p *fishParser) parseLine(line string) {
	switch {
	case strings.HasPrefix(line, "- cmd: "):
		p.flush()
		p.cmd = strings.TrimPrefix(line, "- cmd: ")
		p.current = time.Time{}
		p.inPaths = false
	case strings.HasPrefix(line, "  when: "):
		if ts, err := strconv.ParseInt(strings.TrimPrefix(line, "  when: "), 10, 64); err == nil {
			p.current = time.Unix(ts, 0)
		}
		p.inPaths = false
	case strings.HasPrefix(line, "  paths:"):
		p.inPaths = true
	case p.inPaths && strings.HasPrefix(line, "    "):
		// paths entries, skipped
	case !strings.HasPrefix(line, " "):
		p.inPaths = false
	}
}

func (p *fishParser) flush() {
	if p.cmd == "" {
		return
	}
	p.entries = append(p.entries, Entry{
		Command:   decodeFishEscapes(p.cmd),
		Timestamp: p.current,
	})
	p.cmd = ""
	p.current = time.Time{}
}

func (p *fishParser) finish() []Entry {
	p.flush()
	return p.entries
}

// decodeFishEscapes decodes fish's escapes: \\ for backslash, \n for
// newline.
func decodeFishEscapes(s string) string {
	var result strings.Builder
	result.Grow(len(s))

	for i := 0; i < len(s); {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case '\\':
				result.WriteByte('\\')
				i += 2
				continue
			case 'n':
				result.WriteByte('\n')
				i += 2
				continue
			}
		}
		result.WriteByte(s[i])
		i++
	}
	return result.String()
}

// ParseFile parses the history file at path for the given shell
// ("bash", "zsh", "fish"). A missing file yields no entries.
func ParseFile(shell, path string) ([]Entry, error) {
	if path == "" {
		path = historyPath(shell)
	}
	if path == "" {
		return nil, nil
	}

	file, err := os.Open(path) //nolint:gosec // G304: path is the user's own history file
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	switch shell {
	case "zsh":
		return ParseZsh(file)
	case "fish":
		return ParseFish(file)
	default:
		return ParseBash(file)
	}
}

// DetectShell returns "bash", "zsh" or "fish" from $SHELL, or empty when
// unknown.
func DetectShell() string {
	shell := os.Getenv("SHELL")
	if shell == "" {
		return ""
	}
	switch base := filepath.Base(shell); base {
	case "bash", "zsh", "fish":
		return base
	default:
		return ""
	}
}

// historyPath returns the conventional history file path for a shell.
func historyPath(shell string) string {
	if histFile := os.Getenv("HISTFILE"); histFile != "" {
		return histFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch shell {
	case "zsh":
		return filepath.Join(home, ".zsh_history")
	case "fish":
		dataHome := os.Getenv("XDG_DATA_HOME")
		if dataHome == "" {
			dataHome = filepath.Join(home, ".local", "share")
		}
		return filepath.Join(dataHome, "fish", "fish_history")
	default:
		return filepath.Join(home, ".bash_history")
	}
}

// trimToLimit keeps the last n entries.
func trimToLimit(entries []Entry, n int) []Entry {
	if n <= 0 || len(entries) <= n {
		return entries
	}
	return entries[len(entries)-n:]
}
