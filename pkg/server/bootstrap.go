package server

import (
	"fmt"
	"time"

	"github.com/crystal-mush/gomoo/pkg/moodb"
)

// BootstrapWorld builds the minimal core database for a first boot:
// a starting room, a generic player parent, and a wizard character.
func BootstrapWorld(wizardPassword string) (*moodb.Database, error) {
	hash, err := HashPassword(wizardPassword)
	if err != nil {
		return nil, fmt.Errorf("hashing wizard password: %w", err)
	}

	now := time.Now()
	db := moodb.NewDatabase()

	room := &moodb.Object{
		ID:          0,
		Name:        "The First Room",
		Parent:      moodb.Nothing,
		Location:    moodb.Nothing,
		Owner:       2,
		Description: "A plain room at the center of a brand-new world.",
		LastMod:     now,
	}

	playerParent := &moodb.Object{
		ID:       1,
		Name:     "generic player",
		Parent:   moodb.Nothing,
		Location: moodb.Nothing,
		Owner:    2,
		Flags:    moodb.FlagFertile | moodb.FlagRead,
		LastMod:  now,
		Verbs: []*moodb.Verb{
			{
				Names: "d*escribe",
				Owner: 2,
				Perms: "rd",
				Sig:   moodb.VerbSig{Dobj: moodb.SpecThis, Prep: moodb.PrepNone, Iobj: moodb.SpecNone},
				Code: []string{
					"player:tell(this.description);",
				},
			},
		},
	}

	wizard := &moodb.Object{
		ID:       2,
		Name:     "Wizard",
		Parent:   1,
		Location: 0,
		Owner:    2,
		Flags:    moodb.FlagPlayer | moodb.FlagProgrammer | moodb.FlagWizard,
		Password: hash,
		LastMod:  now,
	}
	room.Contents = []moodb.ObjID{2}

	db.Add(room)
	db.Add(playerParent)
	db.Add(wizard)
	return db, nil
}
