package editor

import (
	"errors"
	"reflect"
	"testing"
)

func TestInsertShiftsDown(t *testing.T) {
	b := NewBuffer([]string{"x=1;", "return x;"})
	if err := b.Insert(2, []string{"x=2;"}); err != nil {
		t.Fatal(err)
	}
	want := []string{"x=1;", "x=2;", "return x;"}
	if !reflect.DeepEqual(b.Lines(), want) {
		t.Errorf("got %v, want %v", b.Lines(), want)
	}
	if !b.Dirty() {
		t.Error("insert must set dirty")
	}
	if b.Cur() != 2 {
		t.Errorf("cursor: got %d, want 2", b.Cur())
	}
}

func TestDeleteSizeLaw(t *testing.T) {
	b := NewBuffer([]string{"a", "b", "c", "d", "e"})
	r := Range{2, 4}
	before := b.Len()
	if err := b.Delete(r); err != nil {
		t.Fatal(err)
	}
	if b.Len() != before-r.Len() {
		t.Errorf("length: got %d, want %d", b.Len(), before-r.Len())
	}
	want := []string{"a", "e"}
	if !reflect.DeepEqual(b.Lines(), want) {
		t.Errorf("residual lines: got %v, want %v", b.Lines(), want)
	}
}

func TestDeleteWholeBuffer(t *testing.T) {
	b := NewBuffer([]string{"a", "b"})
	if err := b.Delete(Range{1, 2}); err != nil {
		t.Fatal(err)
	}
	if b.Len() != 0 {
		t.Errorf("expected empty buffer, got %d lines", b.Len())
	}
	if b.Cur() != 0 {
		t.Errorf("cursor in empty buffer: got %d, want 0", b.Cur())
	}
}

func TestSubstRespectsQuotes(t *testing.T) {
	b := NewBuffer([]string{`player:tell("foo bar"); foo = 1;`})
	n, err := b.Subst("foo", "baz", Range{1, 1})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("substitutions: got %d, want 1", n)
	}
	want := `player:tell("foo bar"); baz = 1;`
	if b.Line(1) != want {
		t.Errorf("got %q, want %q", b.Line(1), want)
	}
}

func TestSubstNoMatchStaysClean(t *testing.T) {
	b := NewBuffer([]string{`"all quoted foo";`})
	n, err := b.Subst("foo", "bar", Range{1, 1})
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("substitutions: got %d, want 0", n)
	}
	if b.Dirty() {
		t.Error("no substitution must not dirty the buffer")
	}
}

func TestMoveAndCopy(t *testing.T) {
	b := NewBuffer([]string{"a", "b", "c", "d"})
	if err := b.Move(Range{1, 2}, 5); err != nil {
		t.Fatal(err)
	}
	want := []string{"c", "d", "a", "b"}
	if !reflect.DeepEqual(b.Lines(), want) {
		t.Errorf("move: got %v, want %v", b.Lines(), want)
	}

	b = NewBuffer([]string{"a", "b"})
	if err := b.Copy(Range{1, 1}, 3); err != nil {
		t.Fatal(err)
	}
	want = []string{"a", "b", "a"}
	if !reflect.DeepEqual(b.Lines(), want) {
		t.Errorf("copy: got %v, want %v", b.Lines(), want)
	}
}

func TestMoveIntoItselfFails(t *testing.T) {
	b := NewBuffer([]string{"a", "b", "c"})
	if err := b.Move(Range{1, 2}, 2); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("expected invalid range, got %v", err)
	}
}

func TestJoinl(t *testing.T) {
	b := NewBuffer([]string{"if (x)", "  return 1;", "endif"})
	if err := b.Joinl(Range{1, 3}, ""); err != nil {
		t.Fatal(err)
	}
	if b.Len() != 1 {
		t.Fatalf("expected 1 line, got %d", b.Len())
	}
	if b.Line(1) != "if (x) return 1; endif" {
		t.Errorf("got %q", b.Line(1))
	}
}

func TestFill(t *testing.T) {
	b := NewBuffer([]string{"the quick brown fox", "jumps over the lazy dog"})
	if err := b.Fill(Range{1, 2}, 15); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= b.Len(); i++ {
		if len(b.Line(i)) > 15 && !oneWord(b.Line(i)) {
			t.Errorf("line %d too wide: %q", i, b.Line(i))
		}
	}
	joined := ""
	for i := 1; i <= b.Len(); i++ {
		if joined != "" {
			joined += " "
		}
		joined += b.Line(i)
	}
	if joined != "the quick brown fox jumps over the lazy dog" {
		t.Errorf("fill lost words: %q", joined)
	}
}

func oneWord(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' {
			return false
		}
	}
	return true
}

func TestCommentUncommentRoundTrip(t *testing.T) {
	orig := []string{
		`plain line`,
		`say "hello, \"world\"";`,
		``,
		`back\slash`,
	}
	b := NewBuffer(orig)
	if err := b.Comment(Range{1, 4}); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 4; i++ {
		line := b.Line(i)
		if line[0] != '"' || line[len(line)-1] != ';' {
			t.Errorf("line %d not comment-shaped: %q", i, line)
		}
	}
	if bad, err := b.Uncomment(Range{1, 4}); err != nil {
		t.Fatalf("uncomment failed on %v: %v", bad, err)
	}
	if !reflect.DeepEqual(b.Lines(), orig) {
		t.Errorf("round trip: got %v, want %v", b.Lines(), orig)
	}
}

func TestUncommentAllOrNothing(t *testing.T) {
	b := NewBuffer([]string{`"a comment";`, `not a comment`, `"another";`})
	before := b.Lines()
	bad, err := b.Uncomment(Range{1, 3})
	if err == nil {
		t.Fatal("expected failure")
	}
	if len(bad) != 1 || bad[0] != 2 {
		t.Errorf("bad lines: got %v, want [2]", bad)
	}
	if !reflect.DeepEqual(b.Lines(), before) {
		t.Error("failed uncomment must not mutate the buffer")
	}
}

func TestYankDoesNotMutate(t *testing.T) {
	b := NewBuffer([]string{"a", "b", "c"})
	if err := b.Yank(Range{2, 3}); err != nil {
		t.Fatal(err)
	}
	if b.Dirty() {
		t.Error("yank must not dirty the buffer")
	}
	want := []string{"b", "c"}
	if !reflect.DeepEqual(b.Yanked(), want) {
		t.Errorf("yanked: got %v, want %v", b.Yanked(), want)
	}
}
