package moocode

import (
	"strings"
	"testing"
)

func TestCheckCleanProgram(t *testing.T) {
	lines := []string{
		"if (x > 1)",
		"  player:tell(\"big\");",
		"elseif (x == 1)",
		"  player:tell(\"one\");",
		"else",
		"  player:tell(\"small\");",
		"endif",
		"return x;",
	}
	if diags := Check(lines); len(diags) != 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}
}

func TestCheckUnterminatedString(t *testing.T) {
	diags := Check([]string{`x = "oops;`})
	if len(diags) == 0 {
		t.Fatal("expected diagnostics")
	}
	if !strings.Contains(diags[0], "Line 1") || !strings.Contains(diags[0], "unterminated") {
		t.Errorf("got %q", diags[0])
	}
	if !strings.HasSuffix(diags[len(diags)-1], "error.") {
		t.Errorf("missing summary line: %v", diags)
	}
}

func TestCheckMissingEndif(t *testing.T) {
	diags := Check([]string{"if (x)", "return 1;"})
	if len(diags) == 0 || !strings.Contains(diags[0], "endif") {
		t.Errorf("expected missing endif, got %v", diags)
	}
}

func TestCheckMismatchedCloser(t *testing.T) {
	diags := Check([]string{"for x in (l)", "endwhile"})
	if len(diags) == 0 || !strings.Contains(diags[0], "endfor") {
		t.Errorf("expected endfor mismatch, got %v", diags)
	}
}

func TestCheckBracketsSpanLines(t *testing.T) {
	lines := []string{
		"x = foo(1,",
		"        2);",
	}
	if diags := Check(lines); len(diags) != 0 {
		t.Errorf("multi-line call should be fine: %v", diags)
	}
}

func TestCheckStrayElse(t *testing.T) {
	diags := Check([]string{"else"})
	if len(diags) == 0 || !strings.Contains(diags[0], "else") {
		t.Errorf("expected stray else, got %v", diags)
	}
}

func TestCheckQuotedBracketsIgnored(t *testing.T) {
	if diags := Check([]string{`x = ")(";`}); len(diags) != 0 {
		t.Errorf("brackets inside strings must be ignored: %v", diags)
	}
}
