package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/crystal-mush/gomoo/pkg/editor"
	"github.com/crystal-mush/gomoo/pkg/events"
	"github.com/crystal-mush/gomoo/pkg/moodb"
)

func cmdSay(g *Game, d *Descriptor, args string, switches []string) {
	if args == "" {
		d.Send("Say what?")
		return
	}
	who := g.DB.Objects[d.Player]
	d.Send(fmt.Sprintf("You say, \"%s\"", args))
	g.EmitRoomExcept(who.Location, d.Player, events.Event{
		Type:   events.EvSay,
		Source: d.Player,
		Text:   fmt.Sprintf("%s says, \"%s\"", who.Name, args),
	})
}

func cmdEmote(g *Game, d *Descriptor, args string, switches []string) {
	if args == "" {
		return
	}
	who := g.DB.Objects[d.Player]
	msg := fmt.Sprintf("%s %s", who.Name, args)
	d.Send(msg)
	g.EmitRoomExcept(who.Location, d.Player, events.Event{
		Type:   events.EvEmote,
		Source: d.Player,
		Text:   msg,
	})
}

func cmdLook(g *Game, d *Descriptor, args string, switches []string) {
	if args == "" {
		g.ShowRoom(d, g.PlayerLocation(d.Player))
		return
	}
	target := MatchObject(g, d.Player, args)
	switch target {
	case moodb.Nothing:
		d.Send("I see no \"" + args + "\" here.")
	case moodb.Ambiguous:
		d.Send("I don't know which \"" + args + "\" you mean.")
	default:
		obj := g.DB.Objects[target]
		d.Send(obj.Name)
		if obj.Description != "" {
			d.Send(obj.Description)
		} else {
			d.Send("You see nothing special.")
		}
	}
}

func cmdWho(g *Game, d *Descriptor, args string, switches []string) {
	d.Send(fmt.Sprintf("%-16s %-10s %-6s %s", "Player", "Connected", "Idle", "Editing"))
	now := time.Now()
	count := 0
	for _, dd := range g.Conns.All() {
		if dd.State != ConnConnected {
			continue
		}
		count++
		obj, ok := g.DB.Objects[dd.Player]
		name := "<unknown>"
		if ok {
			name = obj.Name
		}
		note := ""
		if _, err := g.Sessions.Get(dd.Player); err == nil {
			note = "yes"
		}
		d.Send(fmt.Sprintf("%-16s %-10s %-6s %s",
			name,
			shortDuration(now.Sub(dd.ConnTime)),
			shortDuration(now.Sub(dd.LastCmd)),
			note))
	}
	d.Send(fmt.Sprintf("%d player%s connected.", count, plural(count)))
}

func cmdQuit(g *Game, d *Descriptor, args string, switches []string) {
	d.Send("*** Disconnected ***")
	d.Close()
}

// cmdVerbs lists the verbs declared directly on an object.
func cmdVerbs(g *Game, d *Descriptor, args string, switches []string) {
	target := MatchObject(g, d.Player, args)
	if !target.Valid() {
		d.Send("I see no \"" + args + "\" here.")
		return
	}
	obj := g.DB.Objects[target]
	if len(obj.Verbs) == 0 {
		d.Send(fmt.Sprintf("%s (%s) defines no verbs.", obj.Name, obj.ID))
		return
	}
	d.Send(fmt.Sprintf("Verbs on %s (%s):", obj.Name, obj.ID))
	for _, v := range obj.Verbs {
		d.Send(fmt.Sprintf("  %-24s %s", v.Names, v.Sig))
	}
}

// cmdListVerb prints a verb's code without opening an editor session.
func cmdListVerb(g *Game, d *Descriptor, args string, switches []string) {
	res, ok := resolveVerbArg(g, d, args)
	if !ok {
		return
	}
	if len(res.Verb.Code) == 0 {
		d.Send(fmt.Sprintf("%s:%s is empty.", res.Home, res.Verb.FirstName()))
		return
	}
	d.Send(fmt.Sprintf("%s:%s   %s", res.Home, res.Verb.FirstName(), res.Verb.Sig))
	for i, line := range res.Verb.Code {
		d.Send(fmt.Sprintf("%3d: %s", i+1, line))
	}
}

// cmdAddVerb declares a new empty verb: @verb object:name [dobj prep iobj].
func cmdAddVerb(g *Game, d *Descriptor, args string, switches []string) {
	ref, err := g.Resolver.Parse(d.Player, args)
	if err != nil {
		d.Send("Usage: @verb object:name [dobj prep iobj]  (" + err.Error() + ")")
		return
	}
	if ref.Obj == moodb.Ambiguous {
		d.Send("I don't know which \"" + ref.ObjName + "\" you mean.")
		return
	}
	if !ref.Obj.Valid() {
		d.Send("I see no \"" + ref.ObjName + "\" here.")
		return
	}
	obj := g.DB.Objects[ref.Obj]
	if !Controls(g, d.Player, ref.Obj) {
		d.Send("Permission denied.")
		return
	}
	v := &moodb.Verb{
		Names: ref.Name,
		Owner: d.Player,
		Perms: "rd",
	}
	if ref.HasSig {
		v.Sig = ref.Sig
	} else {
		v.Sig = moodb.VerbSig{Dobj: moodb.SpecNone, Prep: moodb.PrepNone, Iobj: moodb.SpecNone}
	}
	obj.Verbs = append(obj.Verbs, v)
	obj.LastMod = time.Now()
	g.PersistObjects(obj)
	d.Send(fmt.Sprintf("Verb %s:%s added with args %s.", obj.ID, v.FirstName(), v.Sig))
}

// resolveVerbArg parses and resolves an "object:verb [sig]" argument,
// reporting errors to the player. ok is false when reporting happened.
func resolveVerbArg(g *Game, d *Descriptor, args string) (editor.Resolved, bool) {
	ref, err := g.Resolver.Parse(d.Player, args)
	if err != nil {
		d.Send(err.Error())
		return editor.Resolved{}, false
	}
	if ref.Obj == moodb.Ambiguous {
		d.Send("I don't know which \"" + ref.ObjName + "\" you mean.")
		return editor.Resolved{}, false
	}
	if !ref.Obj.Valid() {
		d.Send("I see no \"" + ref.ObjName + "\" here.")
		return editor.Resolved{}, false
	}
	res, err := g.Resolver.Resolve(ref)
	if err != nil {
		d.Send(err.Error())
		if sigs := g.Pipeline.Storage.ListSignatures(ref.Obj, ref.Name); len(sigs) > 0 {
			var parts []string
			for _, s := range sigs {
				parts = append(parts, s.String())
			}
			d.Send("Declared signatures: " + strings.Join(parts, "; "))
		}
		return editor.Resolved{}, false
	}
	return res, true
}

func shortDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d >= time.Hour {
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
	if d >= time.Minute {
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%ds", int(d.Seconds()))
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
