package server

import (
	"strings"
	"testing"
	"time"

	"github.com/crystal-mush/gomoo/pkg/moodb"
)

// newTestGame builds a tiny world: a room, a wizard, a plain player,
// and a widget with a couple of verbs to edit.
func newTestGame() *Game {
	db := moodb.NewDatabase()
	now := time.Now()

	room := &moodb.Object{
		ID:       0,
		Name:     "Test Chamber",
		Parent:   moodb.Nothing,
		Location: moodb.Nothing,
		Owner:    2,
		Contents: []moodb.ObjID{2, 3, 100},
		LastMod:  now,
	}
	wizard := &moodb.Object{
		ID:       2,
		Name:     "Mondrian",
		Parent:   moodb.Nothing,
		Location: 0,
		Owner:    2,
		Flags:    moodb.FlagPlayer | moodb.FlagWizard | moodb.FlagProgrammer,
		LastMod:  now,
	}
	apprentice := &moodb.Object{
		ID:       3,
		Name:     "Apprentice",
		Parent:   moodb.Nothing,
		Location: 0,
		Owner:    3,
		Flags:    moodb.FlagPlayer,
		LastMod:  now,
	}
	widget := &moodb.Object{
		ID:       100,
		Name:     "widget",
		Aliases:  []string{"gadget"},
		Parent:   moodb.Nothing,
		Location: 0,
		Owner:    2,
		LastMod:  now,
		Verbs: []*moodb.Verb{
			{
				Names: "poke",
				Owner: 2,
				Perms: "rd",
				Sig:   moodb.VerbSig{Dobj: moodb.SpecThis, Prep: moodb.PrepNone, Iobj: moodb.SpecNone},
				Code:  []string{"return 1;"},
			},
			{
				Names: "handle",
				Owner: 2,
				Perms: "rd",
				Sig:   moodb.VerbSig{Dobj: moodb.SpecNone, Prep: moodb.PrepNone, Iobj: moodb.SpecNone},
				Code:  []string{"return 0;"},
			},
		},
	}
	db.Add(room)
	db.Add(wizard)
	db.Add(apprentice)
	db.Add(widget)

	return NewGame(db, DefaultGameConf())
}

// testDescriptor returns a connected descriptor whose output is
// captured instead of written to a socket.
func testDescriptor(g *Game, player moodb.ObjID) (*Descriptor, *[]string) {
	var out []string
	d := &Descriptor{
		ID:       g.Conns.NextID(),
		Conn:     nullConn{},
		State:    ConnConnected,
		Player:   player,
		ConnTime: time.Now(),
		LastCmd:  time.Now(),
		Addr:     "test",
	}
	d.SendFunc = func(msg string) {
		out = append(out, msg)
	}
	g.Conns.Add(d)
	g.Conns.Login(d, player)
	return d, &out
}

func sawLine(out []string, substr string) bool {
	for _, line := range out {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func TestDispatchUnknownCommand(t *testing.T) {
	g := newTestGame()
	d, out := testDescriptor(g, 2)

	g.DispatchCommand(d, "frobnicate the whatsit")
	if !sawLine(*out, "I don't understand that.") {
		t.Fatalf("expected unknown-command message, got %q", *out)
	}
}

func TestProgrammerGate(t *testing.T) {
	g := newTestGame()
	d, out := testDescriptor(g, 3)

	g.DispatchCommand(d, "edit widget:poke")
	if !sawLine(*out, "Permission denied.") {
		t.Fatalf("non-programmer should be refused, got %q", *out)
	}
	if _, err := g.Sessions.Get(3); err == nil {
		t.Fatal("no session should exist for a refused edit")
	}
}

func TestAtCommandAbbreviation(t *testing.T) {
	g := newTestGame()
	d, out := testDescriptor(g, 2)

	g.DispatchCommand(d, "@verb widget:zap this none none")
	if !sawLine(*out, "added") {
		t.Fatalf("@verb should add a verb, got %q", *out)
	}

	widget := g.DB.Objects[100]
	found := false
	for _, v := range widget.Verbs {
		if v.FirstName() == "zap" {
			found = true
			if v.Sig.Dobj != moodb.SpecThis {
				t.Errorf("zap dobj = %v, want this", v.Sig.Dobj)
			}
		}
	}
	if !found {
		t.Fatal("zap verb not declared on widget")
	}
}

func TestMatchObject(t *testing.T) {
	g := newTestGame()

	cases := []struct {
		name string
		want moodb.ObjID
	}{
		{"me", 2},
		{"here", 0},
		{"#100", 100},
		{"*apprentice", 3},
		{"widget", 100},
		{"gadget", 100},
		{"wid", 100},
		{"nonesuch", moodb.Nothing},
		{"#9999", moodb.Nothing},
	}
	for _, tc := range cases {
		if got := MatchObject(g, 2, tc.name); got != tc.want {
			t.Errorf("MatchObject(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestVerbRefUnknownAndAmbiguousObjects(t *testing.T) {
	g := newTestGame()
	wicket := &moodb.Object{
		ID:       101,
		Name:     "wicket",
		Parent:   moodb.Nothing,
		Location: 0,
		Owner:    2,
		LastMod:  time.Now(),
	}
	g.DB.Add(wicket)
	room := g.DB.Objects[0]
	room.Contents = append(room.Contents, 101)

	d, out := testDescriptor(g, 2)

	g.DispatchCommand(d, "edit nonesuch:poke")
	if !sawLine(*out, `I see no "nonesuch" here.`) {
		t.Fatalf("expected not-found message, got %q", *out)
	}

	// "wi" prefixes both widget and wicket.
	*out = nil
	g.DispatchCommand(d, "edit wi:poke")
	if !sawLine(*out, `I don't know which "wi" you mean.`) {
		t.Fatalf("expected disambiguation message, got %q", *out)
	}
	if _, err := g.Sessions.Get(2); err == nil {
		t.Fatal("no session should open for an unresolved reference")
	}
}

func TestBootIdleConnections(t *testing.T) {
	g := newTestGame()
	idler, idlerOut := testDescriptor(g, 3)
	idler.LastCmd = time.Now().Add(-2 * time.Hour)
	active, _ := testDescriptor(g, 2)

	if n := g.BootIdle(time.Hour); n != 1 {
		t.Fatalf("BootIdle = %d, want 1", n)
	}
	if !idler.IsClosed() {
		t.Error("idle descriptor should be closed")
	}
	if !sawLine(*idlerOut, "idle too long") {
		t.Errorf("boot message missing, got %q", *idlerOut)
	}
	if active.IsClosed() {
		t.Error("recently active descriptor should stay connected")
	}
	if g.Conns.IsConnected(3) {
		t.Error("booted player should be unregistered")
	}
}

func TestWhoShowsEditingNote(t *testing.T) {
	g := newTestGame()
	d, out := testDescriptor(g, 2)

	g.DispatchCommand(d, "edit widget:poke")
	*out = nil
	g.DispatchCommand(d, "WHO")
	if !sawLine(*out, "Mondrian") {
		t.Fatalf("WHO should list the wizard, got %q", *out)
	}
	joined := strings.Join(*out, "\n")
	if !strings.Contains(joined, "yes") {
		t.Errorf("WHO should flag the editing session:\n%s", joined)
	}
}
