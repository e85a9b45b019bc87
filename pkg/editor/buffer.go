package editor

import (
	"fmt"
	"strings"
)

// Buffer is an ordered, 1-indexed sequence of source lines with a
// current-line cursor. Every mutating operation either applies
// completely or not at all; partial application never escapes.
type Buffer struct {
	lines  []string
	cur    int // 1-based; 0 when the buffer is empty
	dirty  bool
	yanked []string
}

// NewBuffer creates a buffer over a copy of lines. The cursor starts
// on the first line.
func NewBuffer(lines []string) *Buffer {
	b := &Buffer{lines: append([]string(nil), lines...)}
	if len(b.lines) > 0 {
		b.cur = 1
	}
	return b
}

// Len returns the number of lines.
func (b *Buffer) Len() int { return len(b.lines) }

// Lines returns a copy of the buffer contents.
func (b *Buffer) Lines() []string {
	return append([]string(nil), b.lines...)
}

// Line returns line n (1-indexed), or "" when out of bounds.
func (b *Buffer) Line(n int) string {
	if n < 1 || n > len(b.lines) {
		return ""
	}
	return b.lines[n-1]
}

// Cur returns the current line number (0 when empty).
func (b *Buffer) Cur() int { return b.cur }

// SetCur moves the cursor, silently pinning it into bounds.
func (b *Buffer) SetCur(n int) {
	if len(b.lines) == 0 {
		b.cur = 0
		return
	}
	if n < 1 {
		n = 1
	}
	if n > len(b.lines) {
		n = len(b.lines)
	}
	b.cur = n
}

// Dirty reports whether the buffer has uncommitted edits.
func (b *Buffer) Dirty() bool { return b.dirty }

// ClearDirty marks the buffer clean (after a successful compile).
func (b *Buffer) ClearDirty() { b.dirty = false }

// Clone returns an independent deep copy, yank buffer included.
func (b *Buffer) Clone() *Buffer {
	return &Buffer{
		lines:  append([]string(nil), b.lines...),
		cur:    b.cur,
		dirty:  b.dirty,
		yanked: append([]string(nil), b.yanked...),
	}
}

// checkRange validates r against the buffer bounds.
func (b *Buffer) checkRange(r Range) error {
	if r.From < 1 || r.To > len(b.lines) || r.From > r.To {
		return ErrInvalidRange
	}
	return nil
}

// List returns a numbered listing of the range. The current line is
// marked the way the MOO editor marks it.
func (b *Buffer) List(r Range) ([]string, error) {
	if err := b.checkRange(r); err != nil {
		return nil, err
	}
	out := make([]string, 0, r.Len())
	for i := r.From; i <= r.To; i++ {
		mark := ' '
		if i == b.cur {
			mark = '_'
		}
		out = append(out, fmt.Sprintf("%3d:%c %s", i, mark, b.lines[i-1]))
	}
	return out, nil
}

// Insert places lines before position at (1..Len+1), shifting the
// remainder down. The cursor lands on the last inserted line.
func (b *Buffer) Insert(at int, lines []string) error {
	if at < 1 || at > len(b.lines)+1 {
		return ErrInvalidRange
	}
	if len(lines) == 0 {
		return nil
	}
	ins := append([]string(nil), lines...)
	b.lines = append(b.lines[:at-1], append(ins, b.lines[at-1:]...)...)
	b.cur = at + len(lines) - 1
	b.dirty = true
	return nil
}

// Append places lines after position at (0..Len), a convenience for
// "insert after current line" commands.
func (b *Buffer) Append(at int, lines []string) error {
	if at < 0 || at > len(b.lines) {
		return ErrInvalidRange
	}
	return b.Insert(at+1, lines)
}

// Delete removes the range. Deleting the whole buffer is legal and
// leaves it empty. The cursor lands on the line after the deletion.
func (b *Buffer) Delete(r Range) error {
	if err := b.checkRange(r); err != nil {
		return err
	}
	b.lines = append(b.lines[:r.From-1], b.lines[r.To:]...)
	b.SetCur(r.From)
	b.dirty = true
	return nil
}

// Find returns the numbers of lines in the range containing pattern.
func (b *Buffer) Find(pattern string, r Range) ([]int, error) {
	if err := b.checkRange(r); err != nil {
		return nil, err
	}
	var hits []int
	for i := r.From; i <= r.To; i++ {
		if strings.Contains(b.lines[i-1], pattern) {
			hits = append(hits, i)
		}
	}
	return hits, nil
}

// Subst replaces unquoted occurrences of pattern in each line of the
// range. An occurrence whose preceding text leaves a string literal
// open is inside that literal and is skipped. Returns the number of
// substitutions made; the buffer is dirtied only when that is > 0.
func (b *Buffer) Subst(pattern, replacement string, r Range) (int, error) {
	if err := b.checkRange(r); err != nil {
		return 0, err
	}
	if pattern == "" {
		return 0, ErrInvalidRange
	}
	count := 0
	changed := make(map[int]string)
	for i := r.From; i <= r.To; i++ {
		line, n := substLine(b.lines[i-1], pattern, replacement)
		if n > 0 {
			changed[i] = line
			count += n
		}
	}
	if count == 0 {
		return 0, nil
	}
	for i, line := range changed {
		b.lines[i-1] = line
	}
	b.dirty = true
	return count, nil
}

// substLine rewrites one line, skipping matches inside string literals.
func substLine(line, pattern, replacement string) (string, int) {
	var sb strings.Builder
	count := 0
	i := 0
	for i < len(line) {
		idx := strings.Index(line[i:], pattern)
		if idx < 0 {
			sb.WriteString(line[i:])
			break
		}
		at := i + idx
		sb.WriteString(line[i:at])
		if openQuote(line[:at]) {
			// Inside a string literal; emit untouched.
			sb.WriteString(pattern)
		} else {
			sb.WriteString(replacement)
			count++
		}
		i = at + len(pattern)
	}
	if count == 0 {
		return line, 0
	}
	return sb.String(), count
}

// openQuote reports whether prefix ends inside an unterminated
// double-quoted string literal, honoring backslash escapes.
func openQuote(prefix string) bool {
	in := false
	for i := 0; i < len(prefix); i++ {
		c := prefix[i]
		if in {
			switch c {
			case '\\':
				i++
			case '"':
				in = false
			}
		} else if c == '"' {
			in = true
		}
	}
	return in
}

// Move relocates the range so it begins at dest (a position in the
// buffer as it stands before the move, 1..Len+1, outside the range).
func (b *Buffer) Move(r Range, dest int) error {
	if err := b.checkRange(r); err != nil {
		return err
	}
	if dest >= r.From && dest <= r.To+1 {
		return ErrInvalidRange
	}
	if dest < 1 || dest > len(b.lines)+1 {
		return ErrInvalidRange
	}
	chunk := append([]string(nil), b.lines[r.From-1:r.To]...)
	rest := append([]string(nil), b.lines[:r.From-1]...)
	rest = append(rest, b.lines[r.To:]...)
	if dest > r.To {
		dest -= r.Len()
	}
	b.lines = append(rest[:dest-1], append(chunk, rest[dest-1:]...)...)
	b.cur = dest + len(chunk) - 1
	b.dirty = true
	return nil
}

// Copy duplicates the range at dest (1..Len+1).
func (b *Buffer) Copy(r Range, dest int) error {
	if err := b.checkRange(r); err != nil {
		return err
	}
	if dest < 1 || dest > len(b.lines)+1 {
		return ErrInvalidRange
	}
	chunk := append([]string(nil), b.lines[r.From-1:r.To]...)
	b.lines = append(b.lines[:dest-1], append(chunk, b.lines[dest-1:]...)...)
	b.cur = dest + len(chunk) - 1
	b.dirty = true
	return nil
}

// Joinl concatenates the lines of the range into one line. The
// separator cutset is trimmed from the inner boundaries and the
// pieces are joined with a single space; empty pieces vanish.
func (b *Buffer) Joinl(r Range, sep string) error {
	if err := b.checkRange(r); err != nil {
		return err
	}
	var parts []string
	for i := r.From; i <= r.To; i++ {
		p := strings.Trim(b.lines[i-1], sep+" \t")
		if p != "" {
			parts = append(parts, p)
		}
	}
	joined := strings.Join(parts, " ")
	b.lines = append(b.lines[:r.From-1], append([]string{joined}, b.lines[r.To:]...)...)
	b.cur = r.From
	b.dirty = true
	return nil
}

// Fill rewraps the words of the range into lines at most width wide
// (single words longer than width stay on their own line).
func (b *Buffer) Fill(r Range, width int) error {
	if err := b.checkRange(r); err != nil {
		return err
	}
	if width < 1 {
		return ErrInvalidRange
	}
	var words []string
	for i := r.From; i <= r.To; i++ {
		words = append(words, strings.Fields(b.lines[i-1])...)
	}
	var wrapped []string
	var cur strings.Builder
	for _, w := range words {
		if cur.Len() == 0 {
			cur.WriteString(w)
			continue
		}
		if cur.Len()+1+len(w) > width {
			wrapped = append(wrapped, cur.String())
			cur.Reset()
			cur.WriteString(w)
			continue
		}
		cur.WriteByte(' ')
		cur.WriteString(w)
	}
	if cur.Len() > 0 {
		wrapped = append(wrapped, cur.String())
	}
	if len(wrapped) == 0 {
		wrapped = []string{""}
	}
	b.lines = append(b.lines[:r.From-1], append(wrapped, b.lines[r.To:]...)...)
	b.SetCur(r.From + len(wrapped) - 1)
	b.dirty = true
	return nil
}

// Comment replaces each line of the range with a string-literal
// statement holding the original text verbatim.
func (b *Buffer) Comment(r Range) error {
	if err := b.checkRange(r); err != nil {
		return err
	}
	for i := r.From; i <= r.To; i++ {
		b.lines[i-1] = commentLine(b.lines[i-1])
	}
	b.dirty = true
	return nil
}

// Uncomment restores the original text of commented lines. If any
// line in the range does not have the quoted-literal statement shape,
// nothing is mutated and the offending line numbers are returned.
func (b *Buffer) Uncomment(r Range) ([]int, error) {
	if err := b.checkRange(r); err != nil {
		return nil, err
	}
	restored := make([]string, 0, r.Len())
	var bad []int
	for i := r.From; i <= r.To; i++ {
		text, ok := uncommentLine(b.lines[i-1])
		if !ok {
			bad = append(bad, i)
			continue
		}
		restored = append(restored, text)
	}
	if len(bad) > 0 {
		return bad, ErrInvalidRange
	}
	for i := r.From; i <= r.To; i++ {
		b.lines[i-1] = restored[i-r.From]
	}
	b.dirty = true
	return nil, nil
}

// commentLine quotes text as a MOO string-literal statement.
func commentLine(text string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '"', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteByte(text[i])
	}
	sb.WriteString("\";")
	return sb.String()
}

// uncommentLine inverts commentLine, tolerating surrounding blanks.
func uncommentLine(line string) (string, bool) {
	s := strings.TrimSpace(line)
	if len(s) < 3 || s[0] != '"' || !strings.HasSuffix(s, "\";") {
		return "", false
	}
	body := s[1 : len(s)-2]
	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\\' {
			i++
			if i >= len(body) {
				return "", false
			}
			sb.WriteByte(body[i])
			continue
		}
		if c == '"' {
			// Unescaped quote inside the body: not a comment shape.
			return "", false
		}
		sb.WriteByte(c)
	}
	return sb.String(), true
}

// Yank stages a copy of the range for later reuse without mutating
// the buffer.
func (b *Buffer) Yank(r Range) error {
	if err := b.checkRange(r); err != nil {
		return err
	}
	b.yanked = append([]string(nil), b.lines[r.From-1:r.To]...)
	return nil
}

// Yanked returns the staged copy buffer (possibly empty).
func (b *Buffer) Yanked() []string {
	return append([]string(nil), b.yanked...)
}
