package server

import (
	"strconv"
	"strings"

	"github.com/crystal-mush/gomoo/pkg/moodb"
)

// MatchObject resolves an object token in the player's context:
// "me", "here", "#123", "*player", then exact and prefix name matches
// against the player's inventory and location. Returns Nothing for no
// match and Ambiguous when a prefix matches more than one thing.
func MatchObject(g *Game, player moodb.ObjID, name string) moodb.ObjID {
	name = strings.TrimSpace(name)
	if name == "" {
		return moodb.Nothing
	}
	lower := strings.ToLower(name)

	switch lower {
	case "me":
		return player
	case "here":
		return g.PlayerLocation(player)
	}

	if strings.HasPrefix(name, "#") {
		n, err := strconv.Atoi(name[1:])
		if err != nil {
			return moodb.Nothing
		}
		id := moodb.ObjID(n)
		if _, ok := g.DB.Objects[id]; !ok {
			return moodb.Nothing
		}
		return id
	}

	if strings.HasPrefix(name, "*") {
		return g.DB.FindPlayer(name[1:])
	}

	// Search inventory and room contents. Exact name/alias match wins;
	// otherwise fall back to unambiguous prefix match.
	var scope []moodb.ObjID
	if p, ok := g.DB.Objects[player]; ok {
		scope = append(scope, p.Contents...)
		if room, ok := g.DB.Objects[p.Location]; ok {
			scope = append(scope, room.ID)
			scope = append(scope, room.Contents...)
		}
	}

	exact := moodb.Nothing
	prefix := moodb.Nothing
	prefixCount := 0
	for _, id := range scope {
		obj, ok := g.DB.Objects[id]
		if !ok {
			continue
		}
		if nameMatchesObject(obj, lower, true) {
			exact = id
			break
		}
		if nameMatchesObject(obj, lower, false) {
			prefix = id
			prefixCount++
		}
	}
	if exact != moodb.Nothing {
		return exact
	}
	switch prefixCount {
	case 0:
		return moodb.Nothing
	case 1:
		return prefix
	default:
		return moodb.Ambiguous
	}
}

func nameMatchesObject(obj *moodb.Object, lower string, exact bool) bool {
	names := append([]string{obj.Name}, obj.Aliases...)
	for _, n := range names {
		n = strings.ToLower(n)
		if exact && n == lower {
			return true
		}
		if !exact && strings.HasPrefix(n, lower) {
			return true
		}
	}
	return false
}

// gameMatcher adapts MatchObject to the editor's ObjectMatcher interface.
type gameMatcher struct {
	g *Game
}

func (m *gameMatcher) Match(player moodb.ObjID, name string) moodb.ObjID {
	return MatchObject(m.g, player, name)
}
