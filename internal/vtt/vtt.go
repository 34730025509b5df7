// Package vtt reads WebVTT caption files.
package vtt

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

var ErrMissingHeader = errors.New(`file does not start with "WEBVTT"`)

// MalformedError reports a file that is not valid WebVTT.
type MalformedError struct {
	Line int // 1-based line of the offending block, 0 for the whole file
	Err  error
}

func (e *MalformedError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("malformed WebVTT: %v", e.Err)
	}
	return fmt.Sprintf("malformed WebVTT at line %d: %v", e.Line, e.Err)
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

// Cue is one caption.
type Cue struct {
	ID       string
	Start    time.Duration
	End      time.Duration
	Settings string
	Text     string // lines joined with "\n"
}

// File is a parsed caption file.
type File struct {
	Cues []Cue
}

// ReadFile parses the WebVTT file at path.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

type block struct {
	line  int
	lines []string
}

// Parse parses WebVTT data. NOTE, STYLE and REGION blocks are skipped.
func Parse(data []byte) (*File, error) {
	s := strings.TrimPrefix(string(data), "\uFEFF")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	blocks := splitBlocks(s)
	if len(blocks) == 0 || !isHeader(blocks[0].lines[0]) || blocks[0].line != 1 {
		return nil, &MalformedError{Err: ErrMissingHeader}
	}

	f := &File{}
	for _, b := range blocks[1:] {
		first := b.lines[0]
		if isComment(first) {
			continue
		}

		cue, err := parseCue(b.lines)
		if err != nil {
			return nil, &MalformedError{Line: b.line, Err: err}
		}
		f.Cues = append(f.Cues, cue)
	}
	return f, nil
}

func isHeader(line string) bool {
	if !strings.HasPrefix(line, "WEBVTT") {
		return false
	}
	rest := line[len("WEBVTT"):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t'
}

func isComment(line string) bool {
	for _, kw := range []string{"NOTE", "STYLE", "REGION"} {
		if line == kw || strings.HasPrefix(line, kw+" ") || strings.HasPrefix(line, kw+"\t") {
			return true
		}
	}
	return false
}

func splitBlocks(s string) []block {
	var (
		out []block
		cur *block
	)
	for i, l := range strings.Split(s, "\n") {
		l = strings.TrimRight(l, " \t")
		if l == "" {
			if cur != nil {
				out = append(out, *cur)
				cur = nil
			}
			continue
		}
		if cur == nil {
			cur = &block{line: i + 1}
		}
		cur.lines = append(cur.lines, l)
	}
	if cur != nil {
		out = append(out, *cur)
	}
	return out
}

func parseCue(lines []string) (Cue, error) {
	var cue Cue

	if !strings.Contains(lines[0], "-->") {
		cue.ID = lines[0]
		lines = lines[1:]
		if len(lines) == 0 {
			return cue, errors.New("cue without timing line")
		}
	}

	start, end, settings, err := parseTiming(lines[0])
	if err != nil {
		return cue, fmt.Errorf("parse timing: %w", err)
	}
	cue.Start, cue.End, cue.Settings = start, end, settings
	cue.Text = strings.Join(lines[1:], "\n")
	return cue, nil
}

func parseTiming(line string) (time.Duration, time.Duration, string, error) {
	// Example: 00:00:01.234 --> 00:00:04.567 align:start
	parts := strings.SplitN(line, "-->", 2)
	if len(parts) != 2 {
		return 0, 0, "", errors.New("invalid timing separator")
	}

	start, err := parseTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, "", fmt.Errorf("start time: %w", err)
	}

	rest := strings.Fields(parts[1])
	if len(rest) == 0 {
		return 0, 0, "", errors.New("missing end time")
	}
	end, err := parseTimestamp(rest[0])
	if err != nil {
		return 0, 0, "", fmt.Errorf("end time: %w", err)
	}
	if end < start {
		return 0, 0, "", fmt.Errorf("end %s before start %s", FormatTimestamp(end), FormatTimestamp(start))
	}

	return start, end, strings.Join(rest[1:], " "), nil
}

// parseTimestamp reads [hh:]mm:ss.ttt.
func parseTimestamp(s string) (time.Duration, error) {
	clock, frac, ok := strings.Cut(s, ".")
	if !ok || len(frac) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}

	parts := strings.Split(clock, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}

	nums := make([]int, 0, 4)
	for _, p := range append(parts, frac) {
		if p == "" {
			return 0, fmt.Errorf("invalid timestamp %q", s)
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid timestamp %q", s)
		}
		nums = append(nums, n)
	}

	var h, m, sec, ms int
	if len(parts) == 3 {
		h, m, sec, ms = nums[0], nums[1], nums[2], nums[3]
	} else {
		m, sec, ms = nums[0], nums[1], nums[2]
	}
	if m > 59 || sec > 59 {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(sec)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}

// FormatTimestamp renders d as hh:mm:ss.ttt.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d:%02d.%03d", ms/3600000, ms/60000%60, ms/1000%60, ms%1000)
}
