package server

import (
	"strings"

	"github.com/crystal-mush/gomoo/pkg/moodb"
)

// Wizard returns true if the player has the wizard flag.
func Wizard(g *Game, player moodb.ObjID) bool {
	obj, ok := g.DB.Objects[player]
	return ok && obj.HasFlag(moodb.FlagWizard)
}

// Programmer returns true if the player may use the verb editor at all.
// Wizards are always programmers.
func Programmer(g *Game, player moodb.ObjID) bool {
	obj, ok := g.DB.Objects[player]
	if !ok {
		return false
	}
	return obj.HasFlag(moodb.FlagProgrammer) || obj.HasFlag(moodb.FlagWizard)
}

// Controls returns true if who controls what: wizards control
// everything, otherwise ownership decides.
func Controls(g *Game, who, what moodb.ObjID) bool {
	if Wizard(g, who) {
		return true
	}
	obj, ok := g.DB.Objects[what]
	if !ok {
		return false
	}
	return obj.Owner == who || what == who
}

// gameAuthority adapts the game's permission model to the editor's
// single write check: a programmer may write a verb they own, a verb
// on an object they control, or any verb marked writable. The control
// check runs against the verb's home, the ancestor the write actually
// lands on; controlling a child that merely inherits the verb grants
// nothing.
type gameAuthority struct {
	g *Game
}

func (a *gameAuthority) CanWrite(player, obj moodb.ObjID, v *moodb.Verb) bool {
	if !Programmer(a.g, player) {
		return false
	}
	if Wizard(a.g, player) {
		return true
	}
	if v.Owner == player {
		return true
	}
	if strings.ContainsRune(v.Perms, 'w') {
		return true
	}
	home := a.g.DB.VerbHome(obj, v)
	if home == moodb.Nothing {
		return false
	}
	return Controls(a.g, player, home)
}
