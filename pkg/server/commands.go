package server

import (
	"strings"
	"time"
)

// CommandHandler is the signature for game command implementations.
type CommandHandler func(g *Game, d *Descriptor, args string, switches []string)

// Command represents a registered game command.
type Command struct {
	Name       string
	Handler    CommandHandler
	Programmer bool // if true, only programmers (and wizards) may use it
}

// InitCommands registers all available game commands.
func InitCommands() map[string]*Command {
	cmds := make(map[string]*Command)

	register := func(name string, handler CommandHandler) {
		cmds[strings.ToLower(name)] = &Command{Name: name, Handler: handler}
	}
	registerProg := func(name string, handler CommandHandler) {
		cmds[strings.ToLower(name)] = &Command{Name: name, Handler: handler, Programmer: true}
	}

	// Communication
	register("say", cmdSay)
	register("\"", cmdSay)
	register("emote", cmdEmote)
	register(":", cmdEmote)

	// Information
	register("look", cmdLook)
	register("WHO", cmdWho)
	register("QUIT", cmdQuit)

	// Programming
	registerProg("@verbs", cmdVerbs)
	registerProg("@list", cmdListVerb)
	registerProg("@verb", cmdAddVerb)
	registerProg("@edit", cmdEditOpen)
	registerProg("edit", cmdEditOpen)

	return cmds
}

// editorCommands is the command table active while a descriptor is in
// the editor. Input that matches none of these falls through to the
// normal table.
var editorCommands = map[string]CommandHandler{
	"compile":   cmdCompile,
	"list":      cmdList,
	"insert":    cmdInsert,
	"next":      cmdNext,
	"prev":      cmdPrev,
	"enter":     cmdEnter,
	"delete":    cmdDelete,
	"find":      cmdFind,
	"subst":     cmdSubst,
	"move":      cmdMove,
	"copy":      cmdCopy,
	"joinl":     cmdJoinl,
	"fill":      cmdFill,
	"comment":   cmdComment,
	"uncomment": cmdUncomment,
	"yank":      cmdYank,
	"what":      cmdWhat,
	"abort":     cmdAbort,
	"quit":      cmdEditQuit,
	"done":      cmdDone,
	"pause":     cmdPause,
}

// HasSwitch reports whether a /switch was given on the command.
func HasSwitch(switches []string, name string) bool {
	for _, s := range switches {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

// DispatchCommand routes one line of player input. Multi-line capture
// (enter/insert) takes precedence, then the editor table when the
// descriptor is inside the editor, then the global table.
func (g *Game) DispatchCommand(d *Descriptor, input string) {
	d.LastCmd = time.Now()
	d.CmdCount++

	if d.Entering != nil {
		g.captureLine(d, input)
		return
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return
	}

	if d.InEditor {
		// A leading " appends the rest of the line after the cursor.
		if strings.HasPrefix(input, "\"") {
			cmdAddLine(g, d, input[1:], nil)
			return
		}
		name, args := splitCommand(input)
		if h, ok := editorCommands[strings.ToLower(name)]; ok {
			h(g, d, args, nil)
			return
		}
	}

	switch input[0] {
	case '"':
		cmdSay(g, d, input[1:], nil)
		return
	case ':':
		cmdEmote(g, d, input[1:], nil)
		return
	}

	cmdName, args := splitCommand(input)

	// Parse /switches from command name (e.g. "@list/all")
	var switches []string
	if slashIdx := strings.IndexByte(cmdName, '/'); slashIdx >= 0 {
		parts := strings.Split(cmdName, "/")
		cmdName = parts[0]
		switches = parts[1:]
	}

	lower := strings.ToLower(cmdName)
	if cmd, ok := g.Commands[lower]; ok {
		if cmd.Programmer && !Programmer(g, d.Player) {
			d.Send("Permission denied.")
			return
		}
		cmd.Handler(g, d, args, switches)
		return
	}

	// Prefix matching for @-commands (e.g. @ve = @verbs when unambiguous).
	if len(lower) > 1 && lower[0] == '@' {
		var matched *Command
		count := 0
		for name, cmd := range g.Commands {
			if strings.HasPrefix(name, lower) {
				matched = cmd
				count++
			}
		}
		if count == 1 && matched != nil {
			if matched.Programmer && !Programmer(g, d.Player) {
				d.Send("Permission denied.")
				return
			}
			matched.Handler(g, d, args, switches)
			return
		}
	}

	d.Send("I don't understand that.")
}

func splitCommand(input string) (name, args string) {
	if spaceIdx := strings.IndexByte(input, ' '); spaceIdx >= 0 {
		return input[:spaceIdx], strings.TrimSpace(input[spaceIdx+1:])
	}
	return input, ""
}

// captureLine feeds one raw line into an active multi-line capture.
// The terminator line finishes the capture; `@abort` cancels it.
func (g *Game) captureLine(d *Descriptor, line string) {
	ent := d.Entering
	trimmed := strings.TrimRight(line, "\r\n")
	if trimmed == ent.Terminator {
		d.Entering = nil
		ent.OnDone(g, d, ent.Lines, false)
		return
	}
	if trimmed == "@abort" {
		d.Entering = nil
		ent.OnDone(g, d, nil, true)
		return
	}
	ent.Lines = append(ent.Lines, trimmed)
}
