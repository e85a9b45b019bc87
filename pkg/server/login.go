package server

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/digitive/crypt"
	"golang.org/x/crypto/bcrypt"

	"github.com/crystal-mush/gomoo/pkg/events"
	"github.com/crystal-mush/gomoo/pkg/moodb"
)

// ParseConnect parses a login-screen command into (command, user, password).
// Handles: "connect name password", "create name password"
func ParseConnect(msg string) (command, user, password string) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return "", "", ""
	}

	parts := strings.SplitN(msg, " ", 2)
	command = strings.ToLower(parts[0])
	if len(parts) < 2 {
		return command, "", ""
	}

	rest := strings.TrimSpace(parts[1])
	if rest == "" {
		return command, "", ""
	}

	// Handle quoted names (for names with spaces)
	if rest[0] == '"' {
		end := strings.Index(rest[1:], "\"")
		if end >= 0 {
			user = rest[1 : end+1]
			password = strings.TrimSpace(rest[end+2:])
			return
		}
	}

	parts = strings.SplitN(rest, " ", 2)
	user = parts[0]
	if len(parts) > 1 {
		password = strings.TrimSpace(parts[1])
	}
	return
}

// CheckPassword verifies a password against a player's stored hash.
// New characters get bcrypt; databases imported from a C server carry
// unix crypt(3) hashes, which stay valid until the next @password.
func CheckPassword(db *moodb.Database, player moodb.ObjID, password string) bool {
	obj, ok := db.Objects[player]
	if !ok || obj.Password == "" {
		return false
	}
	stored := obj.Password
	if strings.HasPrefix(stored, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	if len(stored) >= 2 {
		if hashed, err := crypt.Crypt(password, stored[:2]); err == nil {
			return hashed == stored
		}
	}
	return false
}

// HashPassword produces the stored form for a new password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// HandleLogin processes one line of pre-login input.
func (g *Game) HandleLogin(d *Descriptor, line string) {
	command, user, password := ParseConnect(line)
	switch command {
	case "connect", "con":
		g.loginConnect(d, user, password)
	case "create":
		g.loginCreate(d, user, password)
	case "who":
		cmdWho(g, d, "", nil)
	case "quit":
		cmdQuit(g, d, "", nil)
	case "":
		// ignore blank lines at the login screen
	default:
		d.Send("Unknown command. Use \"connect <name> <password>\" or \"create <name> <password>\".")
	}
}

func (g *Game) loginConnect(d *Descriptor, user, password string) {
	player := g.DB.FindPlayer(user)
	if player == moodb.Nothing || !CheckPassword(g.DB, player, password) {
		log.Printf("login: failed connect for %q from %s", user, d.Addr)
		d.Send("Either that player does not exist, or has a different password.")
		return
	}
	g.completeLogin(d, player)
}

func (g *Game) loginCreate(d *Descriptor, user, password string) {
	if user == "" || password == "" {
		d.Send("Usage: create <name> <password>")
		return
	}
	if g.DB.FindPlayer(user) != moodb.Nothing {
		d.Send("That name is already taken.")
		return
	}
	if !validPlayerName(user) {
		d.Send("That is not a reasonable player name.")
		return
	}
	hash, err := HashPassword(password)
	if err != nil {
		log.Printf("login: hashing password: %v", err)
		d.Send("Character creation failed; try again.")
		return
	}
	obj := &moodb.Object{
		ID:       g.DB.MaxObj + 1,
		Name:     user,
		Parent:   g.Conf.PlayerParent,
		Location: g.Conf.StartRoom,
		Owner:    g.DB.MaxObj + 1,
		Flags:    moodb.FlagPlayer,
		Password: hash,
		LastMod:  time.Now(),
	}
	g.DB.Add(obj)
	if room, ok := g.DB.Objects[g.Conf.StartRoom]; ok {
		room.Contents = append(room.Contents, obj.ID)
		g.PersistObjects(obj, room)
	} else {
		g.PersistObjects(obj)
	}
	log.Printf("login: created player %s (%s) from %s", user, obj.ID, d.Addr)
	g.completeLogin(d, obj.ID)
}

func (g *Game) completeLogin(d *Descriptor, player moodb.ObjID) {
	g.Conns.Login(d, player)
	obj := g.DB.Objects[player]
	log.Printf("login: %s (%s) connected from %s", obj.Name, player, d.Addr)
	d.Send(fmt.Sprintf("*** Connected as %s ***", obj.Name))
	if g.Texts != nil {
		if motd := g.Texts.Get("motd.txt"); motd != "" {
			d.Send(motd)
		}
	}
	if note := g.SessionNote(player); note != "" {
		d.Send(note + "; type `edit` to resume.")
	}
	g.EmitRoomExcept(obj.Location, player, events.Event{
		Type:   events.EvConnect,
		Source: player,
		Text:   obj.Name + " has connected.",
	})
	g.ShowRoom(d, obj.Location)
	if g.Metrics != nil {
		g.Metrics.Logins.Inc()
	}
}

func validPlayerName(name string) bool {
	if len(name) < 2 || len(name) > 32 {
		return false
	}
	for _, r := range name {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '-') {
			return false
		}
	}
	return true
}

// WelcomeText is the default welcome screen shown to new connections
// when no welcome.txt override exists.
const WelcomeText = `
  _____       __  __  ____   ____
 / ____|     |  \/  |/ __ \ / __ \
| |  __  ___ | \  / | |  | | |  | |
| | |_ |/ _ \| |\/| | |  | | |  | |
| |__| | (_) | |  | | |__| | |__| |
 \_____|\___/|_|  |_|\____/ \____/

"connect <name> <password>" to connect to your existing character.
"create <name> <password>" to create a new character.
"WHO" to see who is connected.
"QUIT" to disconnect.

`
