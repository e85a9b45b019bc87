// Package moocode is the compile service behind verb submission: a
// line-oriented syntax checker producing ordered, human-readable
// diagnostics. It deliberately checks only what can be decided
// without a full parse: string literals, bracket balance, and
// block-keyword pairing.
package moocode

import (
	"fmt"
	"strings"
)

// blockPairs maps openers to their closers.
var blockPairs = map[string]string{
	"if":    "endif",
	"for":   "endfor",
	"while": "endwhile",
	"fork":  "endfork",
	"try":   "endtry",
}

var closers = map[string]bool{
	"endif": true, "endfor": true, "endwhile": true,
	"endfork": true, "endtry": true,
}

// midKeywords are only legal inside their enclosing block.
var midKeywords = map[string]string{
	"else":    "if",
	"elseif":  "if",
	"except":  "try",
	"finally": "try",
}

// Check validates verb source and returns diagnostics, empty on
// success. Diagnostics are ordered by line.
func Check(lines []string) []string {
	var diags []string
	var blocks []string // open block keyword stack
	depth := 0          // paren/bracket/brace nesting across lines

	for i, line := range lines {
		no := i + 1
		rest, ok := stripStrings(line)
		if !ok {
			diags = append(diags, fmt.Sprintf("Line %d: unterminated string literal.", no))
			continue
		}
		depth = scanBrackets(rest, depth, no, &diags)

		word := firstWord(rest)
		switch {
		case blockPairs[word] != "":
			blocks = append(blocks, word)
		case closers[word]:
			if len(blocks) == 0 {
				diags = append(diags, fmt.Sprintf("Line %d: `%s' with no matching block.", no, word))
				break
			}
			open := blocks[len(blocks)-1]
			if blockPairs[open] != word {
				diags = append(diags, fmt.Sprintf("Line %d: expected `%s' to close `%s', found `%s'.", no, blockPairs[open], open, word))
			}
			blocks = blocks[:len(blocks)-1]
		case midKeywords[word] != "":
			if !inBlock(blocks, midKeywords[word]) {
				diags = append(diags, fmt.Sprintf("Line %d: `%s' outside of %s.", no, word, midKeywords[word]))
			}
		}
	}

	for _, open := range blocks {
		diags = append(diags, fmt.Sprintf("End of program: missing `%s'.", blockPairs[open]))
	}
	if depth > 0 {
		diags = append(diags, "End of program: unclosed parenthesis or bracket.")
	}
	if len(diags) > 0 {
		n := "errors"
		if len(diags) == 1 {
			n = "error"
		}
		diags = append(diags, fmt.Sprintf("%d %s.", len(diags), n))
	}
	return diags
}

// stripStrings removes string literals from a line, returning false
// when a literal is left open at end of line.
func stripStrings(line string) (string, bool) {
	var sb strings.Builder
	in := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		if in {
			if c == '\\' {
				i++
			} else if c == '"' {
				in = false
			}
			continue
		}
		if c == '"' {
			in = true
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String(), !in
}

// scanBrackets advances the running bracket depth over a string-free
// line, reporting closers that underflow.
func scanBrackets(s string, depth, no int, diags *[]string) int {
	under := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth < 0 {
				under = true
				depth = 0
			}
		}
	}
	if under {
		*diags = append(*diags, fmt.Sprintf("Line %d: too many closing brackets.", no))
	}
	return depth
}

// firstWord extracts the leading keyword of a line, lowercased.
func firstWord(s string) string {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) {
		c := s[end]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' {
			end++
			continue
		}
		break
	}
	return strings.ToLower(s[:end])
}

// inBlock reports whether kw is anywhere on the open-block stack.
func inBlock(blocks []string, kw string) bool {
	for _, b := range blocks {
		if b == kw {
			return true
		}
	}
	return false
}
