package moodb

import (
	"strconv"
	"strings"
	"time"
)

// ObjID is the fundamental object reference type in MOO.
type ObjID int

const (
	Nothing   ObjID = -1
	Ambiguous ObjID = -2
	Failed    ObjID = -3
)

// Valid reports whether the reference points at a real object slot.
func (o ObjID) Valid() bool { return o >= 0 }

// String formats the reference in the familiar #n notation.
func (o ObjID) String() string { return "#" + strconv.Itoa(int(o)) }

// Object flag constants.
const (
	FlagPlayer     = 0x0001
	FlagProgrammer = 0x0002
	FlagWizard     = 0x0004
	FlagRead       = 0x0008
	FlagWrite      = 0x0010
	FlagFertile    = 0x0020
)

// Object represents a MOO database object.
type Object struct {
	ID          ObjID
	Name        string
	Aliases     []string
	Parent      ObjID
	Location    ObjID
	Contents    []ObjID
	Owner       ObjID
	Flags       int
	Description string
	Password    string // password hash (bcrypt, or legacy unix crypt)
	Verbs       []*Verb
	LastMod     time.Time
}

// HasFlag checks if a flag bit is set.
func (o *Object) HasFlag(flag int) bool {
	return o.Flags&flag != 0
}

// IsPlayer returns true if the object is a player.
func (o *Object) IsPlayer() bool {
	return o.HasFlag(FlagPlayer)
}

// RemoveContent drops an object from the contents list, if present.
func (o *Object) RemoveContent(id ObjID) {
	for i, c := range o.Contents {
		if c == id {
			o.Contents = append(o.Contents[:i], o.Contents[i+1:]...)
			return
		}
	}
}

// Database holds the complete in-memory world state.
type Database struct {
	Objects map[ObjID]*Object
	MaxObj  ObjID

	// playerNames indexes lowercased player names and aliases to their IDs.
	playerNames map[string]ObjID
}

// NewDatabase creates an empty Database.
func NewDatabase() *Database {
	return &Database{
		Objects:     make(map[ObjID]*Object),
		MaxObj:      Nothing,
		playerNames: make(map[string]ObjID),
	}
}

// Add inserts an object and maintains MaxObj and the player-name index.
func (db *Database) Add(obj *Object) {
	db.Objects[obj.ID] = obj
	if obj.ID > db.MaxObj {
		db.MaxObj = obj.ID
	}
	if obj.IsPlayer() {
		db.IndexPlayer(obj)
	}
}

// IndexPlayer (re)registers a player's name and aliases for login lookup.
func (db *Database) IndexPlayer(obj *Object) {
	db.playerNames[strings.ToLower(obj.Name)] = obj.ID
	for _, a := range obj.Aliases {
		db.playerNames[strings.ToLower(a)] = obj.ID
	}
}

// FindPlayer resolves a player name or alias, or Nothing.
func (db *Database) FindPlayer(name string) ObjID {
	if id, ok := db.playerNames[strings.ToLower(name)]; ok {
		return id
	}
	return Nothing
}

// Ancestry returns the parent chain of obj starting at obj itself.
// Cycles (which should never exist) terminate the walk.
func (db *Database) Ancestry(obj ObjID) []ObjID {
	var chain []ObjID
	seen := make(map[ObjID]bool)
	for obj.Valid() && !seen[obj] {
		seen[obj] = true
		chain = append(chain, obj)
		o, ok := db.Objects[obj]
		if !ok {
			break
		}
		obj = o.Parent
	}
	return chain
}
