package server

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/crystal-mush/gomoo/pkg/editor"
	"github.com/crystal-mush/gomoo/pkg/events"
	"github.com/crystal-mush/gomoo/pkg/moodb"
)

// cmdEditOpen loads a verb into the player's editor session.
// With no argument it resumes a paused session instead.
func cmdEditOpen(g *Game, d *Descriptor, args string, switches []string) {
	if args == "" {
		sess, err := g.Sessions.Get(d.Player)
		if err != nil {
			d.Send("Usage: edit object:verb [dobj prep iobj]")
			return
		}
		d.InEditor = true
		sess.Touch(time.Now())
		d.Send(fmt.Sprintf("Resuming %s:%s (%d lines%s).",
			sess.Target.Home, sess.Target.Verb.FirstName(),
			sess.Buf.Len(), dirtyNote(sess)))
		return
	}

	res, ok := resolveVerbArg(g, d, args)
	if !ok {
		return
	}
	if !canRead(g, d.Player, res) {
		d.Send("Permission denied.")
		return
	}
	lines, err := g.Pipeline.Storage.FetchCode(res.Home, res.Verb)
	if err != nil {
		d.Send("Verb storage error: " + err.Error())
		return
	}
	sess, err := g.Sessions.Open(d.Player, res, lines)
	if err != nil {
		if errors.Is(err, editor.ErrPendingSession) {
			old, _ := g.Sessions.Get(d.Player)
			if old.Buf.Dirty() {
				d.Send(fmt.Sprintf("You are still editing %s:%s with unsaved changes; compile or abort it first.",
					old.Target.Home, old.Target.Verb.FirstName()))
			} else {
				d.Send(fmt.Sprintf("You are still editing %s:%s; `quit` or `abort` it first.",
					old.Target.Home, old.Target.Verb.FirstName()))
			}
		} else {
			d.Send(err.Error())
		}
		return
	}
	d.InEditor = true
	log.Printf("editor: #%d opened %s:%s (%d lines)",
		d.Player, res.Home, res.Verb.FirstName(), sess.Buf.Len())
	g.EventBus.EmitToPlayer(d.Player, events.Event{
		Type: events.EvEditOpen, Player: d.Player, Verb: res.Verb.FirstName(),
	})
	if g.Metrics != nil {
		g.Metrics.SessionsOpened.Inc()
	}
	if sess.Buf.Len() == 0 {
		d.Send(fmt.Sprintf("Now editing %s:%s. The verb is empty; use `enter` to type its body, then `compile`.",
			res.Home, res.Verb.FirstName()))
	} else {
		d.Send(fmt.Sprintf("Now editing %s:%s (%d lines). Type `list` to see it, `compile` to save, `abort` to discard.",
			res.Home, res.Verb.FirstName(), sess.Buf.Len()))
	}
}

func cmdCompile(g *Game, d *Descriptor, args string, switches []string) {
	sess, ok := getSession(g, d)
	if !ok {
		return
	}
	compileBuffer(g, d, sess, args)
}

// compileBuffer runs a compile attempt and reports its outcome to the
// player. Returns true only when the verb was actually programmed.
func compileBuffer(g *Game, d *Descriptor, sess *editor.Session, args string) bool {
	override := ""
	if args != "" {
		rest, found := strings.CutPrefix(args, "as ")
		if !found {
			d.Send("Usage: compile [as object:verb [dobj prep iobj]]")
			return false
		}
		override = strings.TrimSpace(rest)
	}
	target := sess.Target
	result, err := g.Pipeline.Compile(sess, override)
	if g.Audit != nil {
		g.Audit.Record(d.Player, sess, override, result, err)
	}
	if err != nil {
		if errors.Is(err, editor.ErrPermissionDenied) {
			d.Send("Permission denied.")
		} else {
			d.Send(err.Error())
		}
		return false
	}
	if !result.OK() {
		for _, diag := range result.Diagnostics {
			d.Send(diag)
		}
		d.Send("Verb not programmed.")
		g.EventBus.EmitToPlayer(d.Player, events.Event{
			Type: events.EvCompileFail, Player: d.Player, Verb: sess.Target.Verb.FirstName(),
		})
		if g.Metrics != nil {
			g.Metrics.CompileFailures.Inc()
		}
		return false
	}
	if result.Retargeted {
		d.Send(fmt.Sprintf("Verb programmed as %s:%s (was %s:%s); future compiles go there.",
			sess.Target.Home, sess.Target.Verb.FirstName(),
			target.Home, target.Verb.FirstName()))
	} else {
		d.Send("Verb programmed.")
	}
	log.Printf("editor: #%d compiled %s:%s (%d lines)",
		d.Player, sess.Target.Home, sess.Target.Verb.FirstName(), sess.Buf.Len())
	g.EventBus.EmitToPlayer(d.Player, events.Event{
		Type: events.EvCompileOK, Player: d.Player, Verb: sess.Target.Verb.FirstName(),
	})
	if g.Metrics != nil {
		g.Metrics.CompileSuccesses.Inc()
	}
	return true
}

func cmdList(g *Game, d *Descriptor, args string, switches []string) {
	sess, ok := getSession(g, d)
	if !ok {
		return
	}
	if sess.Buf.Len() == 0 {
		d.Send("The buffer is empty.")
		return
	}
	r, ok := rangeArg(d, sess, args, wholeBuffer)
	if !ok {
		return
	}
	lines, err := sess.Buf.List(r)
	if err != nil {
		d.Send(err.Error())
		return
	}
	for _, line := range lines {
		d.Send(line)
	}
	d.Send("^^^^")
}

// cmdInsert collects lines and places them before the addressed line
// (default: before the current line).
func cmdInsert(g *Game, d *Descriptor, args string, switches []string) {
	sess, ok := getSession(g, d)
	if !ok {
		return
	}
	at := sess.Buf.Cur()
	if at == 0 {
		at = 1
	}
	if args != "" {
		r, ok := rangeArg(d, sess, args, currentLine)
		if !ok {
			return
		}
		at = r.From
	}
	startCapture(d, fmt.Sprintf("Type lines to insert before line %d; end with `.` alone, or `@abort` to cancel.", at),
		func(g *Game, d *Descriptor, lines []string, aborted bool) {
			finishEntry(g, d, lines, aborted, func(s *editor.Session) error {
				return s.Buf.Insert(at, lines)
			})
		})
}

// cmdEnter collects lines and appends them after the current line.
// On an empty buffer this types in a fresh verb body.
func cmdEnter(g *Game, d *Descriptor, args string, switches []string) {
	if _, ok := getSession(g, d); !ok {
		return
	}
	startCapture(d, "Type lines of input; end with `.` alone, or `@abort` to cancel.",
		func(g *Game, d *Descriptor, lines []string, aborted bool) {
			finishEntry(g, d, lines, aborted, func(s *editor.Session) error {
				return s.Buf.Append(s.Buf.Cur(), lines)
			})
		})
}

// cmdAddLine handles a leading-quote line: append one line after the cursor.
func cmdAddLine(g *Game, d *Descriptor, args string, switches []string) {
	sess, ok := getSession(g, d)
	if !ok {
		return
	}
	if err := sess.Buf.Append(sess.Buf.Cur(), []string{args}); err != nil {
		d.Send(err.Error())
		return
	}
	sess.Touch(time.Now())
	d.Send(fmt.Sprintf("Line %d added.", sess.Buf.Cur()))
}

func cmdNext(g *Game, d *Descriptor, args string, switches []string) {
	moveCursor(g, d, args, 1)
}

func cmdPrev(g *Game, d *Descriptor, args string, switches []string) {
	moveCursor(g, d, args, -1)
}

func moveCursor(g *Game, d *Descriptor, args string, dir int) {
	sess, ok := getSession(g, d)
	if !ok {
		return
	}
	n := 1
	if args != "" {
		v, err := strconv.Atoi(args)
		if err != nil || v < 1 {
			d.Send("Usage: next [n] / prev [n]")
			return
		}
		n = v
	}
	sess.Buf.SetCur(sess.Buf.Cur() + dir*n)
	sess.Touch(time.Now())
	cur := sess.Buf.Cur()
	if cur == 0 {
		d.Send("The buffer is empty.")
		return
	}
	d.Send(fmt.Sprintf("%3d:_ %s", cur, sess.Buf.Line(cur)))
}

func cmdDelete(g *Game, d *Descriptor, args string, switches []string) {
	sess, ok := getSession(g, d)
	if !ok {
		return
	}
	r, ok := rangeArg(d, sess, args, currentLine)
	if !ok {
		return
	}
	if err := sess.Buf.Delete(r); err != nil {
		d.Send(err.Error())
		return
	}
	sess.Touch(time.Now())
	d.Send(fmt.Sprintf("Line%s %s deleted.", plural(r.Len()), r))
}

func cmdFind(g *Game, d *Descriptor, args string, switches []string) {
	sess, ok := getSession(g, d)
	if !ok {
		return
	}
	pattern, rest := cutPattern(args)
	if pattern == "" {
		d.Send("Usage: find pattern [range]   or   find \"pattern with spaces\" [range]")
		return
	}
	r, ok := rangeArg(d, sess, rest, wholeBuffer)
	if !ok {
		return
	}
	matches, err := sess.Buf.Find(pattern, r)
	if err != nil {
		d.Send(err.Error())
		return
	}
	if len(matches) == 0 {
		d.Send(fmt.Sprintf("%q not found in %s.", pattern, r))
		return
	}
	for _, n := range matches {
		d.Send(fmt.Sprintf("%3d: %s", n, sess.Buf.Line(n)))
	}
	sess.Buf.SetCur(matches[0])
	sess.Touch(time.Now())
}

// cmdSubst handles `subst [range] /old/new/`. The delimiter is the
// first rune of the pattern clause and may be any punctuation.
func cmdSubst(g *Game, d *Descriptor, args string, switches []string) {
	sess, ok := getSession(g, d)
	if !ok {
		return
	}
	rangeExpr, old, repl, perr := splitSubst(args)
	if perr != "" {
		d.Send(perr)
		return
	}
	r, ok := rangeArg(d, sess, rangeExpr, currentLine)
	if !ok {
		return
	}
	n, err := sess.Buf.Subst(old, repl, r)
	if err != nil {
		d.Send(err.Error())
		return
	}
	sess.Touch(time.Now())
	if n == 0 {
		d.Send(fmt.Sprintf("%q not found (outside string literals) in %s.", old, r))
		return
	}
	d.Send(fmt.Sprintf("%d substitution%s made.", n, plural(n)))
}

func cmdMove(g *Game, d *Descriptor, args string, switches []string) {
	relocate(g, d, args, false)
}

func cmdCopy(g *Game, d *Descriptor, args string, switches []string) {
	relocate(g, d, args, true)
}

// relocate implements `move|copy [range] to dest`.
func relocate(g *Game, d *Descriptor, args string, copying bool) {
	sess, ok := getSession(g, d)
	if !ok {
		return
	}
	verb := "move"
	if copying {
		verb = "copy"
	}
	rangeExpr, destExpr, found := cutLast(args, " to ")
	if !found {
		d.Send(fmt.Sprintf("Usage: %s [range] to line", verb))
		return
	}
	r, ok := rangeArg(d, sess, rangeExpr, currentLine)
	if !ok {
		return
	}
	destRange, ok := rangeArg(d, sess, destExpr, currentLine)
	if !ok {
		return
	}
	dest := destRange.From
	var err error
	if copying {
		err = sess.Buf.Copy(r, dest)
	} else {
		err = sess.Buf.Move(r, dest)
	}
	if err != nil {
		d.Send(err.Error())
		return
	}
	sess.Touch(time.Now())
	d.Send(fmt.Sprintf("Line%s %s %sd to %d.", plural(r.Len()), r, verb, dest))
}

func cmdJoinl(g *Game, d *Descriptor, args string, switches []string) {
	sess, ok := getSession(g, d)
	if !ok {
		return
	}
	r, ok := rangeArg(d, sess, args, currentLine)
	if !ok {
		return
	}
	if r.Len() < 2 {
		d.Send("Give a range of at least two lines to join.")
		return
	}
	if err := sess.Buf.Joinl(r, ""); err != nil {
		d.Send(err.Error())
		return
	}
	sess.Touch(time.Now())
	d.Send(fmt.Sprintf("%3d:_ %s", sess.Buf.Cur(), sess.Buf.Line(sess.Buf.Cur())))
}

// cmdFill rewraps `fill [range] [@ width]` to a target width.
func cmdFill(g *Game, d *Descriptor, args string, switches []string) {
	sess, ok := getSession(g, d)
	if !ok {
		return
	}
	width := 70
	if g.Conf != nil && g.Conf.FillWidth >= 10 {
		width = g.Conf.FillWidth
	}
	rangeExpr := args
	if at := strings.LastIndex(args, "@"); at >= 0 {
		w, err := strconv.Atoi(strings.TrimSpace(args[at+1:]))
		if err != nil || w < 10 {
			d.Send("Usage: fill [range] [@ width]   (width at least 10)")
			return
		}
		width = w
		rangeExpr = strings.TrimSpace(args[:at])
	}
	r, ok := rangeArg(d, sess, rangeExpr, currentLine)
	if !ok {
		return
	}
	if err := sess.Buf.Fill(r, width); err != nil {
		d.Send(err.Error())
		return
	}
	sess.Touch(time.Now())
	d.Send("Filled.")
}

func cmdComment(g *Game, d *Descriptor, args string, switches []string) {
	sess, ok := getSession(g, d)
	if !ok {
		return
	}
	r, ok := rangeArg(d, sess, args, currentLine)
	if !ok {
		return
	}
	if err := sess.Buf.Comment(r); err != nil {
		d.Send(err.Error())
		return
	}
	sess.Touch(time.Now())
	d.Send(fmt.Sprintf("Line%s %s commented.", plural(r.Len()), r))
}

func cmdUncomment(g *Game, d *Descriptor, args string, switches []string) {
	sess, ok := getSession(g, d)
	if !ok {
		return
	}
	r, ok := rangeArg(d, sess, args, currentLine)
	if !ok {
		return
	}
	bad, err := sess.Buf.Uncomment(r)
	if err != nil {
		if len(bad) > 0 {
			var nums []string
			for _, n := range bad {
				nums = append(nums, strconv.Itoa(n))
			}
			d.Send("Not comments: line " + strings.Join(nums, ", ") + ". Nothing changed.")
			return
		}
		d.Send(err.Error())
		return
	}
	sess.Touch(time.Now())
	d.Send(fmt.Sprintf("Line%s %s uncommented.", plural(r.Len()), r))
}

func cmdYank(g *Game, d *Descriptor, args string, switches []string) {
	sess, ok := getSession(g, d)
	if !ok {
		return
	}
	r, ok := rangeArg(d, sess, args, currentLine)
	if !ok {
		return
	}
	if err := sess.Buf.Yank(r); err != nil {
		d.Send(err.Error())
		return
	}
	sess.Touch(time.Now())
	d.Send(fmt.Sprintf("Line%s %s yanked.", plural(r.Len()), r))
}

func cmdWhat(g *Game, d *Descriptor, args string, switches []string) {
	sess, ok := getSession(g, d)
	if !ok {
		return
	}
	t := sess.Target
	d.Send(fmt.Sprintf("Editing %s:%s   %s", t.Home, t.Verb.FirstName(), t.Verb.Sig))
	state := "no unsaved changes"
	if sess.Buf.Dirty() {
		state = "unsaved changes"
	}
	d.Send(fmt.Sprintf("%d line%s, cursor at line %d, %s.",
		sess.Buf.Len(), plural(sess.Buf.Len()), sess.Buf.Cur(), state))
	d.Send(fmt.Sprintf("Opened %s; last compiled %s.",
		sess.Opened.Format(time.RFC822), formatLastModified(sess.LastModified)))
	if yanked := sess.Buf.Yanked(); len(yanked) > 0 {
		d.Send(fmt.Sprintf("%d line%s in the yank buffer.", len(yanked), plural(len(yanked))))
	}
}

func cmdAbort(g *Game, d *Descriptor, args string, switches []string) {
	if err := g.Sessions.Abort(d.Player); err != nil {
		d.Send("You are not editing anything.")
		return
	}
	d.InEditor = false
	log.Printf("editor: #%d aborted session", d.Player)
	g.EventBus.EmitToPlayer(d.Player, events.Event{Type: events.EvEditClose, Player: d.Player})
	if g.Metrics != nil {
		g.Metrics.SessionsAborted.Inc()
	}
	d.Send("Editing session discarded.")
}

// cmdEditQuit leaves the editor. A clean session is dropped; a dirty
// one keeps the player in the editor so nothing is lost silently.
func cmdEditQuit(g *Game, d *Descriptor, args string, switches []string) {
	sess, ok := getSession(g, d)
	if !ok {
		d.InEditor = false
		return
	}
	if sess.Buf.Dirty() {
		d.Send("You have unsaved changes; `compile`, `abort`, or `pause` first.")
		return
	}
	g.Sessions.Abort(d.Player)
	d.InEditor = false
	d.Send("Editor closed.")
}

// cmdDone compiles and, on success, closes the session.
func cmdDone(g *Game, d *Descriptor, args string, switches []string) {
	sess, ok := getSession(g, d)
	if !ok {
		return
	}
	if compileBuffer(g, d, sess, args) {
		g.Sessions.Abort(d.Player)
		d.InEditor = false
		d.Send("Editor closed.")
	}
}

// cmdPause leaves the editor but keeps the session for later resume.
func cmdPause(g *Game, d *Descriptor, args string, switches []string) {
	if _, ok := getSession(g, d); !ok {
		return
	}
	d.InEditor = false
	d.Send("Editing paused; type `edit` to resume.")
}

// --- helpers ---

type rangeDefault int

const (
	currentLine rangeDefault = iota
	wholeBuffer
)

// rangeArg resolves an optional range expression with a per-command
// default, reporting failures to the player.
func rangeArg(d *Descriptor, sess *editor.Session, expr string, def rangeDefault) (editor.Range, bool) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		switch def {
		case wholeBuffer:
			return editor.Range{From: 1, To: sess.Buf.Len()}, true
		default:
			cur := sess.Buf.Cur()
			if cur == 0 {
				d.Send("The buffer is empty.")
				return editor.Range{}, false
			}
			return editor.Range{From: cur, To: cur}, true
		}
	}
	r, err := editor.ParseRange(sess.Buf.Lines(), sess.Buf.Cur(), expr)
	if err != nil {
		if errors.Is(err, editor.ErrRangeNotFound) {
			d.Send(fmt.Sprintf("Range not found: %s", expr))
		} else {
			d.Send(fmt.Sprintf("Invalid range: %s", expr))
		}
		return editor.Range{}, false
	}
	return r, true
}

func getSession(g *Game, d *Descriptor) (*editor.Session, bool) {
	sess, err := g.Sessions.Get(d.Player)
	if err != nil {
		d.Send("You are not editing anything; use `edit object:verb` first.")
		return nil, false
	}
	return sess, true
}

func startCapture(d *Descriptor, prompt string, done func(*Game, *Descriptor, []string, bool)) {
	d.Send(prompt)
	d.Entering = &EnterData{Terminator: ".", OnDone: done}
}

func finishEntry(g *Game, d *Descriptor, lines []string, aborted bool, apply func(*editor.Session) error) {
	if aborted {
		d.Send("Input discarded.")
		return
	}
	if len(lines) == 0 {
		d.Send("No lines entered.")
		return
	}
	sess, ok := getSession(g, d)
	if !ok {
		return
	}
	if err := apply(sess); err != nil {
		d.Send(err.Error())
		return
	}
	sess.Touch(time.Now())
	d.Send(fmt.Sprintf("%d line%s added.", len(lines), plural(len(lines))))
}

// cutPattern takes a leading pattern off a find argument: either a
// quoted string or the first whitespace-delimited word.
func cutPattern(args string) (pattern, rest string) {
	args = strings.TrimSpace(args)
	if strings.HasPrefix(args, "\"") {
		if end := strings.Index(args[1:], "\""); end >= 0 {
			return args[1 : end+1], strings.TrimSpace(args[end+2:])
		}
		return args[1:], ""
	}
	if sp := strings.IndexByte(args, ' '); sp >= 0 {
		return args[:sp], strings.TrimSpace(args[sp+1:])
	}
	return args, ""
}

// splitSubst parses "[range] /old/new/" where the delimiter is the
// first rune of the substitution clause.
func splitSubst(args string) (rangeExpr, old, repl, errMsg string) {
	const usage = "Usage: subst [range] /old/new/"
	args = strings.TrimSpace(args)
	if args == "" {
		return "", "", "", usage
	}
	delimIdx := strings.IndexFunc(args, func(r rune) bool {
		return strings.ContainsRune("/|!#", r)
	})
	if delimIdx < 0 {
		return "", "", "", usage
	}
	rangeExpr = strings.TrimSpace(args[:delimIdx])
	clause := args[delimIdx:]
	delim := string(clause[0])
	parts := strings.Split(clause[1:], delim)
	if len(parts) != 3 || parts[2] != "" || parts[0] == "" {
		return "", "", "", usage
	}
	return rangeExpr, parts[0], parts[1], ""
}

// cutLast splits on the last occurrence of sep.
func cutLast(s, sep string) (before, after string, found bool) {
	idx := strings.LastIndex(s, sep)
	if idx < 0 {
		return s, "", false
	}
	return strings.TrimSpace(s[:idx]), strings.TrimSpace(s[idx+len(sep):]), true
}

// canRead reports whether player may view a verb's source.
func canRead(g *Game, player moodb.ObjID, res editor.Resolved) bool {
	if Wizard(g, player) || res.Verb.Owner == player {
		return true
	}
	if strings.ContainsRune(res.Verb.Perms, 'r') {
		return true
	}
	return Controls(g, player, res.Home)
}

func dirtyNote(sess *editor.Session) string {
	if sess.Buf.Dirty() {
		return ", unsaved changes"
	}
	return ""
}

func formatLastModified(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format(time.RFC822)
}
