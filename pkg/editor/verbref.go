package editor

import (
	"fmt"
	"strings"

	"github.com/crystal-mush/gomoo/pkg/moodb"
)

// VerbRef addresses a possibly-overloaded verb on an object. The
// signature, when present, picks among same-named verbs.
type VerbRef struct {
	Obj     moodb.ObjID
	ObjName string // token the user typed, kept for messages
	Name    string
	HasSig  bool
	Sig     moodb.VerbSig
}

func (r VerbRef) String() string {
	s := fmt.Sprintf("%s:%s", r.ObjName, r.Name)
	if r.HasSig {
		s += " " + r.Sig.String()
	}
	return s
}

// ObjectMatcher resolves a textual object token in the acting
// player's context (me, here, #N, names in scope).
type ObjectMatcher interface {
	Match(player moodb.ObjID, name string) moodb.ObjID
}

// VerbFinder enumerates declared verbs; *moodb.Database satisfies it.
type VerbFinder interface {
	FindVerbs(obj moodb.ObjID, name string) []*moodb.Verb
	VerbHome(obj moodb.ObjID, v *moodb.Verb) moodb.ObjID
}

// Resolved is a concrete verb slot produced by resolution.
type Resolved struct {
	Ref  VerbRef
	Verb *moodb.Verb
	Home moodb.ObjID // object in the ancestry that defines the verb
}

// Resolver parses and disambiguates verb references.
type Resolver struct {
	Matcher ObjectMatcher
	Finder  VerbFinder
}

// Parse splits "object:verb-name [dobj prep iobj]" reference text.
// The object token is resolved through the matcher relative to
// player; the matcher's verdict, including Nothing and Ambiguous, is
// passed through in the ref so the caller can word its own complaint.
// Signature tokens are validated against the fixed vocabulary
// (none/any/this plus the preposition table); anything left over is
// returned inside a ParseError so the caller can say exactly what was
// not understood.
func (rs *Resolver) Parse(player moodb.ObjID, text string) (VerbRef, error) {
	text = strings.TrimSpace(text)
	colon := strings.IndexByte(text, ':')
	if colon <= 0 {
		return VerbRef{}, &ParseError{Residue: text}
	}
	objTok := strings.TrimSpace(text[:colon])
	rest := strings.TrimSpace(text[colon+1:])

	var name, sigText string
	if sp := strings.IndexByte(rest, ' '); sp >= 0 {
		name = rest[:sp]
		sigText = strings.TrimSpace(rest[sp+1:])
	} else {
		name = rest
	}
	if name == "" {
		return VerbRef{}, &ParseError{Residue: text}
	}

	ref := VerbRef{Obj: rs.Matcher.Match(player, objTok), ObjName: objTok, Name: name}
	if sigText == "" {
		return ref, nil
	}

	sig, err := ParseSig(sigText)
	if err != nil {
		return VerbRef{}, err
	}
	ref.HasSig = true
	ref.Sig = sig
	return ref, nil
}

// ParseSig parses a three-part "dobj prep iobj" signature. The
// preposition may span several words ("in front of"); the first token
// is the direct-object spec and the last is the indirect-object spec.
func ParseSig(text string) (moodb.VerbSig, error) {
	tokens := strings.Fields(text)
	if len(tokens) < 3 {
		return moodb.VerbSig{}, &ParseError{Residue: text}
	}
	dobj, ok := moodb.ParseArgSpec(tokens[0])
	if !ok {
		return moodb.VerbSig{}, &ParseError{Residue: tokens[0]}
	}
	iobj, ok := moodb.ParseArgSpec(tokens[len(tokens)-1])
	if !ok {
		return moodb.VerbSig{}, &ParseError{Residue: tokens[len(tokens)-1]}
	}
	prepText := strings.Join(tokens[1:len(tokens)-1], " ")
	prep, ok := moodb.ParsePrep(prepText)
	if !ok {
		return moodb.VerbSig{}, &ParseError{Residue: prepText}
	}
	return moodb.VerbSig{Dobj: dobj, Prep: prep, Iobj: iobj}, nil
}

// Resolve finds the concrete verb slot a reference names. Without a
// signature the first declared match wins. With one, each candidate's
// declared signature is compared positionally (wildcard "any" matches
// either side); failing that the error is ErrNoVerbWithSig, distinct
// from ErrNoSuchVerb.
func (rs *Resolver) Resolve(ref VerbRef) (Resolved, error) {
	candidates := rs.Finder.FindVerbs(ref.Obj, ref.Name)
	if len(candidates) == 0 {
		return Resolved{}, fmt.Errorf("%s:%s: %w", ref.ObjName, ref.Name, ErrNoSuchVerb)
	}
	if !ref.HasSig {
		v := candidates[0]
		return Resolved{Ref: ref, Verb: v, Home: rs.Finder.VerbHome(ref.Obj, v)}, nil
	}
	for _, v := range candidates {
		if v.Sig.Matches(ref.Sig) {
			return Resolved{Ref: ref, Verb: v, Home: rs.Finder.VerbHome(ref.Obj, v)}, nil
		}
	}
	return Resolved{}, fmt.Errorf("%s:%s %s: %w", ref.ObjName, ref.Name, ref.Sig, ErrNoVerbWithSig)
}
