package editor

import (
	"errors"
	"testing"

	"github.com/crystal-mush/gomoo/pkg/moodb"
)

// tokenMatcher resolves fixed tokens for tests.
type tokenMatcher map[string]moodb.ObjID

func (m tokenMatcher) Match(_ moodb.ObjID, name string) moodb.ObjID {
	if id, ok := m[name]; ok {
		return id
	}
	return moodb.Nothing
}

func testWorld() (*moodb.Database, *Resolver) {
	db := moodb.NewDatabase()
	obj := &moodb.Object{ID: 123, Name: "widget", Parent: moodb.Nothing}
	obj.Verbs = append(obj.Verbs,
		&moodb.Verb{Names: "verb", Sig: moodb.VerbSig{Dobj: moodb.SpecThis, Prep: moodb.PrepNone, Iobj: moodb.SpecNone}},
		&moodb.Verb{Names: "verb", Sig: moodb.VerbSig{Dobj: moodb.SpecAny, Prep: moodb.PrepAny, Iobj: moodb.SpecAny}},
		&moodb.Verb{Names: "do_thing", Sig: moodb.VerbSig{Dobj: moodb.SpecNone, Prep: moodb.PrepNone, Iobj: moodb.SpecNone}},
	)
	db.Add(obj)
	rs := &Resolver{
		Matcher: tokenMatcher{"obj": 123, "#123": 123},
		Finder:  db,
	}
	return db, rs
}

func TestParseRefWithSignature(t *testing.T) {
	_, rs := testWorld()
	ref, err := rs.Parse(1, "obj:verb any none this")
	if err != nil {
		t.Fatal(err)
	}
	if ref.Obj != 123 || ref.Name != "verb" {
		t.Errorf("ref: got %v", ref)
	}
	if !ref.HasSig {
		t.Fatal("expected signature")
	}
	want := moodb.VerbSig{Dobj: moodb.SpecAny, Prep: moodb.PrepNone, Iobj: moodb.SpecThis}
	if ref.Sig != want {
		t.Errorf("sig: got %v, want %v", ref.Sig, want)
	}
}

func TestParseRefMultiWordPrep(t *testing.T) {
	_, rs := testWorld()
	ref, err := rs.Parse(1, "obj:verb any in front of this")
	if err != nil {
		t.Fatal(err)
	}
	if ref.Sig.Prep != moodb.PrepSpec(2) {
		t.Errorf("prep: got %v", ref.Sig.Prep)
	}
}

func TestParseRefResidue(t *testing.T) {
	_, rs := testWorld()
	_, err := rs.Parse(1, "obj:verb any sideways this")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected parse error, got %v", err)
	}
	if pe.Residue != "sideways" {
		t.Errorf("residue: got %q, want %q", pe.Residue, "sideways")
	}
}

func TestParseRefUnknownObjectPassesThrough(t *testing.T) {
	_, rs := testWorld()
	ref, err := rs.Parse(1, "gizmo:verb")
	if err != nil {
		t.Fatal(err)
	}
	// The matcher's verdict is the caller's to report on.
	if ref.Obj != moodb.Nothing || ref.ObjName != "gizmo" {
		t.Errorf("ref: got %v", ref)
	}
}

func TestResolveFirstDeclaredWins(t *testing.T) {
	db, rs := testWorld()
	got, err := rs.Resolve(VerbRef{Obj: 123, ObjName: "obj", Name: "verb"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Verb != db.Objects[123].Verbs[0] {
		t.Error("unsignatured resolve must return the first declared match")
	}
	if got.Home != 123 {
		t.Errorf("home: got #%d, want #123", got.Home)
	}
}

func TestResolveBySignature(t *testing.T) {
	db, rs := testWorld()
	ref := VerbRef{Obj: 123, ObjName: "obj", Name: "verb", HasSig: true,
		Sig: moodb.VerbSig{Dobj: moodb.SpecNone, Prep: moodb.PrepSpec(1), Iobj: moodb.SpecNone}}
	got, err := rs.Resolve(ref)
	if err != nil {
		t.Fatal(err)
	}
	// Only the any/any/any declaration matches none at/to none.
	if got.Verb != db.Objects[123].Verbs[1] {
		t.Error("signature should select the wildcard declaration")
	}
}

func TestResolveDistinguishesErrors(t *testing.T) {
	_, rs := testWorld()
	_, err := rs.Resolve(VerbRef{Obj: 123, ObjName: "obj", Name: "bogus"})
	if !errors.Is(err, ErrNoSuchVerb) {
		t.Errorf("expected no-such-verb, got %v", err)
	}

	ref := VerbRef{Obj: 123, ObjName: "obj", Name: "do_thing", HasSig: true,
		Sig: moodb.VerbSig{Dobj: moodb.SpecThis, Prep: moodb.PrepSpec(0), Iobj: moodb.SpecThis}}
	_, err = rs.Resolve(ref)
	if !errors.Is(err, ErrNoVerbWithSig) {
		t.Errorf("expected no-verb-with-signature, got %v", err)
	}
	if errors.Is(err, ErrNoSuchVerb) {
		t.Error("the two resolution failures must stay distinct")
	}
}
