package editor

import (
	"fmt"
	"strconv"
	"strings"
)

// Range is an inclusive 1-indexed line interval within a buffer.
type Range struct {
	From, To int
}

// Len returns the number of lines spanned.
func (r Range) Len() int { return r.To - r.From + 1 }

func (r Range) String() string {
	if r.From == r.To {
		return strconv.Itoa(r.From)
	}
	return fmt.Sprintf("%d..%d", r.From, r.To)
}

// ParseRange parses a range expression against a buffer of n lines
// whose current line is cur. Recognized forms, for each endpoint:
// a line number, "." (current line), "$" (last line), or a quoted
// substring resolved to the first matching line searching forward
// from the current line and wrapping once. Two endpoints are joined
// with "..". Reversed and out-of-bounds ranges fail; nothing is
// clamped. The empty expression is the caller's problem: every
// command supplies its own default.
func ParseRange(lines []string, cur int, expr string) (Range, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Range{}, ErrInvalidRange
	}
	n := len(lines)

	if sep := findSeparator(expr); sep > 0 {
		first, err := parsePoint(lines, cur, strings.TrimSpace(expr[:sep]))
		if err != nil {
			return Range{}, err
		}
		second, err := parsePoint(lines, cur, strings.TrimSpace(expr[sep+2:]))
		if err != nil {
			return Range{}, err
		}
		if first < 1 || second > n || first > second {
			return Range{}, ErrInvalidRange
		}
		return Range{From: first, To: second}, nil
	}

	line, err := parsePoint(lines, cur, expr)
	if err != nil {
		return Range{}, err
	}
	if line < 1 || line > n {
		return Range{}, ErrInvalidRange
	}
	return Range{From: line, To: line}, nil
}

// findSeparator locates the ".." joining two endpoints, skipping any
// quoted search text. Position 0 cannot be a separator (the left
// endpoint would be empty), which also keeps a lone "." endpoint
// unambiguous.
func findSeparator(expr string) int {
	inq := false
	for i := 0; i < len(expr)-1; i++ {
		c := expr[i]
		if inq {
			if c == '\\' {
				i++
			} else if c == '"' {
				inq = false
			}
			continue
		}
		if c == '"' {
			inq = true
			continue
		}
		if i > 0 && c == '.' && expr[i+1] == '.' {
			return i
		}
	}
	return -1
}

// parsePoint resolves one whole endpoint expression to a line number.
func parsePoint(lines []string, cur int, expr string) (int, error) {
	n := len(lines)
	switch {
	case expr == "":
		return 0, ErrInvalidRange
	case expr == ".":
		if cur < 1 || cur > n {
			return 0, ErrInvalidRange
		}
		return cur, nil
	case expr == "$":
		if n == 0 {
			return 0, ErrInvalidRange
		}
		return n, nil
	case expr[0] == '"':
		text, rest, ok := scanQuoted(expr)
		if !ok || strings.TrimSpace(rest) != "" {
			return 0, ErrInvalidRange
		}
		line := searchFrom(lines, cur, text)
		if line == 0 {
			return 0, ErrRangeNotFound
		}
		return line, nil
	default:
		num, err := strconv.Atoi(expr)
		if err != nil {
			return 0, ErrInvalidRange
		}
		return num, nil
	}
}

// scanQuoted consumes a double-quoted token, honoring backslash
// escapes, and returns the unescaped text plus the remainder.
func scanQuoted(s string) (text, rest string, ok bool) {
	if len(s) < 2 || s[0] != '"' {
		return "", "", false
	}
	var sb strings.Builder
	i := 1
	for i < len(s) {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			sb.WriteByte(s[i+1])
			i += 2
			continue
		}
		if c == '"' {
			return sb.String(), s[i+1:], true
		}
		sb.WriteByte(c)
		i++
	}
	return "", "", false
}

// searchFrom finds the first line containing text, scanning from cur
// to the end and then wrapping to the top for one full pass. Returns
// 0 when no line matches.
func searchFrom(lines []string, cur int, text string) int {
	n := len(lines)
	if n == 0 {
		return 0
	}
	if cur < 1 || cur > n {
		cur = 1
	}
	for off := 0; off < n; off++ {
		idx := (cur - 1 + off) % n
		if strings.Contains(lines[idx], text) {
			return idx + 1
		}
	}
	return 0
}
