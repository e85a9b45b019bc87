package server

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/crystal-mush/gomoo/pkg/boltstore"
	"github.com/crystal-mush/gomoo/pkg/editor"
	"github.com/crystal-mush/gomoo/pkg/events"
	"github.com/crystal-mush/gomoo/pkg/moodb"
)

// Game holds the full runtime state of the server: the object database,
// connections, the editor session store and the services built on top.
type Game struct {
	DB       *moodb.Database
	Conns    *ConnManager
	Commands map[string]*Command
	Store    *boltstore.Store // nil = no bbolt persistence
	Sessions *editor.Store    // per-player verb editor sessions
	Pipeline *editor.Pipeline // compile pipeline (storage, auth, subst)
	Resolver *editor.Resolver // obj:verb reference resolution
	Texts    *TextFiles       // cached text files (welcome.txt, help.txt, ...)
	TextDir  string
	Conf     *GameConf
	ConfPath string
	EventBus *events.Bus
	Audit    *AuditLog // compile audit trail (nil if disabled)
	Metrics  *Metrics  // nil until the web server installs one
}

// NewGame wires a Game around a database, building the editor resolver and
// compile pipeline against the game's own storage and permission layers.
func NewGame(db *moodb.Database, conf *GameConf) *Game {
	g := &Game{
		DB:       db,
		Conns:    NewConnManager(),
		Commands: InitCommands(),
		Conf:     conf,
		EventBus: events.NewBus(),
	}
	g.Conns.EventBus = g.EventBus
	g.Sessions = editor.NewStore()
	g.Resolver = &editor.Resolver{
		Matcher: &gameMatcher{g: g},
		Finder:  db,
	}
	g.Pipeline = &editor.Pipeline{
		Storage:  &gameVerbStorage{g: g},
		Auth:     &gameAuthority{g: g},
		Resolver: g.Resolver,
		Subst:    nil,
	}
	return g
}

// Emit sends an event to the player specified in ev.Player via the event bus.
func (g *Game) Emit(ev events.Event) {
	g.EventBus.EmitToPlayer(ev.Player, ev)
}

// EmitRoomExcept sends an event to all players in a room except one.
func (g *Game) EmitRoomExcept(room, except moodb.ObjID, ev events.Event) {
	g.EventBus.EmitToRoom(g.DB, room, except, ev)
}

// PlayerLocation returns the location of a player, or Nothing.
func (g *Game) PlayerLocation(player moodb.ObjID) moodb.ObjID {
	if obj, ok := g.DB.Objects[player]; ok {
		return obj.Location
	}
	return moodb.Nothing
}

// PersistObjects writes objects through to the bolt store, if one is attached.
func (g *Game) PersistObjects(objs ...*moodb.Object) {
	if g.Store == nil {
		return
	}
	if err := g.Store.PutObjects(objs...); err != nil {
		log.Printf("persist: %v", err)
	}
}

// ShowRoom sends a room description (name, description, contents) to d.
func (g *Game) ShowRoom(d *Descriptor, room moodb.ObjID) {
	obj, ok := g.DB.Objects[room]
	if !ok {
		d.Send("You are nowhere.")
		return
	}
	d.Send(obj.Name)
	if obj.Description != "" {
		d.Send(obj.Description)
	}
	var here []string
	for _, id := range obj.Contents {
		if id == d.Player {
			continue
		}
		if c, ok := g.DB.Objects[id]; ok {
			here = append(here, c.Name)
		}
	}
	if len(here) > 0 {
		d.Send("You see here: " + strings.Join(here, ", "))
	}
}

// MoveObject relocates what into dest, maintaining both contents lists.
func (g *Game) MoveObject(what, dest moodb.ObjID) {
	obj, ok := g.DB.Objects[what]
	if !ok {
		return
	}
	persist := []*moodb.Object{obj}
	if old, ok := g.DB.Objects[obj.Location]; ok {
		old.RemoveContent(what)
		persist = append(persist, old)
	}
	obj.Location = dest
	if dst, ok := g.DB.Objects[dest]; ok {
		dst.Contents = append(dst.Contents, what)
		persist = append(persist, dst)
	}
	g.PersistObjects(persist...)
}

// SessionNote returns a one-line summary of a player's editor session,
// or "" when the player has none.
func (g *Game) SessionNote(player moodb.ObjID) string {
	sess, err := g.Sessions.Get(player)
	if err != nil {
		return ""
	}
	state := "clean"
	if sess.Buf.Dirty() {
		state = "unsaved changes"
	}
	return fmt.Sprintf("Editing %s:%s (%d lines, %s)",
		sess.Target.Home, sess.Target.Verb.FirstName(), sess.Buf.Len(), state)
}

// SweepSessions evicts idle editor sessions and notifies their owners.
func (g *Game) SweepSessions(maxIdle time.Duration) {
	evicted := g.Sessions.Sweep(maxIdle, time.Now())
	for _, player := range evicted {
		log.Printf("editor: evicted idle session for #%d", player)
		g.Emit(events.Event{
			Type:   events.EvEditClose,
			Player: player,
			Text:   "Your editing session timed out and was discarded.",
		})
	}
	if g.Metrics != nil {
		g.Metrics.SessionsEvicted.Add(float64(len(evicted)))
	}
}

// BootIdle disconnects descriptors whose last command is older than
// maxIdle. Editor sessions are untouched, so a booted player resumes
// theirs on reconnect. Returns the number of connections booted.
func (g *Game) BootIdle(maxIdle time.Duration) int {
	now := time.Now()
	booted := 0
	for _, d := range g.Conns.All() {
		if d.IsClosed() || now.Sub(d.LastCmd) < maxIdle {
			continue
		}
		if d.State == ConnConnected {
			if obj, ok := g.DB.Objects[d.Player]; ok {
				log.Printf("login: %s (%s) booted for idling", obj.Name, d.Player)
			}
		}
		d.Send("*** Disconnected: idle too long. ***")
		g.Conns.Remove(d)
		d.Close()
		booted++
	}
	return booted
}
