package server

import (
	"fmt"
	"time"

	"github.com/crystal-mush/gomoo/pkg/moocode"
	"github.com/crystal-mush/gomoo/pkg/moodb"
)

// gameVerbStorage is the editor's view of verb code: reads come from
// the in-memory database, writes run the syntax checker and then
// mutate the database and write through to the bolt store.
type gameVerbStorage struct {
	g *Game
}

func (s *gameVerbStorage) FetchCode(obj moodb.ObjID, v *moodb.Verb) ([]string, error) {
	if _, ok := s.g.DB.Objects[obj]; !ok {
		return nil, fmt.Errorf("no such object %s", obj)
	}
	out := make([]string, len(v.Code))
	copy(out, v.Code)
	return out, nil
}

func (s *gameVerbStorage) WriteCode(obj moodb.ObjID, v *moodb.Verb, lines []string) ([]string, error) {
	home := s.g.DB.VerbHome(obj, v)
	if home == moodb.Nothing {
		return nil, fmt.Errorf("verb %q no longer exists on %s", v.FirstName(), obj)
	}
	if diags := moocode.Check(lines); len(diags) > 0 {
		return diags, nil
	}
	v.Code = make([]string, len(lines))
	copy(v.Code, lines)
	o := s.g.DB.Objects[home]
	o.LastMod = time.Now()
	s.g.PersistObjects(o)
	return nil, nil
}

func (s *gameVerbStorage) ListSignatures(obj moodb.ObjID, name string) []moodb.VerbSig {
	var sigs []moodb.VerbSig
	for _, v := range s.g.DB.FindVerbs(obj, name) {
		sigs = append(sigs, v.Sig)
	}
	return sigs
}
