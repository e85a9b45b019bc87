package moodb

import "strings"

// ArgSpec is a direct- or indirect-object specifier on a verb signature.
type ArgSpec int

const (
	SpecNone ArgSpec = iota
	SpecAny
	SpecThis
)

func (a ArgSpec) String() string {
	switch a {
	case SpecNone:
		return "none"
	case SpecAny:
		return "any"
	case SpecThis:
		return "this"
	default:
		return "?"
	}
}

// ParseArgSpec parses one of the fixed dobj/iobj tokens.
func ParseArgSpec(tok string) (ArgSpec, bool) {
	switch strings.ToLower(tok) {
	case "none":
		return SpecNone, true
	case "any":
		return SpecAny, true
	case "this":
		return SpecThis, true
	}
	return SpecNone, false
}

// PrepSpec is the preposition part of a verb signature. Non-negative
// values index into Prepositions; PrepAny and PrepNone are special.
type PrepSpec int

const (
	PrepAny  PrepSpec = -2
	PrepNone PrepSpec = -1
)

// Prepositions is the fixed preposition table. Each entry is a set of
// aliases separated by '/'; multi-word aliases are legal ("in front of").
var Prepositions = []string{
	"with/using",
	"at/to",
	"in front of",
	"in/inside/into",
	"on top of/on/onto/upon",
	"out of/from inside/from",
	"over",
	"through",
	"under/underneath/beneath",
	"behind",
	"beside",
	"for/about",
	"is",
	"as",
	"off/off of",
}

func (p PrepSpec) String() string {
	switch p {
	case PrepAny:
		return "any"
	case PrepNone:
		return "none"
	}
	if int(p) >= 0 && int(p) < len(Prepositions) {
		return Prepositions[p]
	}
	return "?"
}

// ParsePrep parses a preposition token (possibly multi-word), "any",
// or "none". Any alias of a table entry is accepted.
func ParsePrep(tok string) (PrepSpec, bool) {
	tok = strings.ToLower(strings.TrimSpace(tok))
	switch tok {
	case "any":
		return PrepAny, true
	case "none":
		return PrepNone, true
	}
	for i, entry := range Prepositions {
		for _, alias := range strings.Split(entry, "/") {
			if tok == alias {
				return PrepSpec(i), true
			}
		}
	}
	return PrepNone, false
}

// VerbSig is the three-part argument signature disambiguating
// same-named verbs.
type VerbSig struct {
	Dobj ArgSpec
	Prep PrepSpec
	Iobj ArgSpec
}

func (s VerbSig) String() string {
	return s.Dobj.String() + " " + s.Prep.String() + " " + s.Iobj.String()
}

// Matches compares two signatures positionally. A position matches if
// the values are identical or either side is the "any" wildcard.
func (s VerbSig) Matches(other VerbSig) bool {
	if s.Dobj != other.Dobj && s.Dobj != SpecAny && other.Dobj != SpecAny {
		return false
	}
	if s.Prep != other.Prep && s.Prep != PrepAny && other.Prep != PrepAny {
		return false
	}
	if s.Iobj != other.Iobj && s.Iobj != SpecAny && other.Iobj != SpecAny {
		return false
	}
	return true
}

// Verb is a named executable procedure attached to an object.
type Verb struct {
	Names string // space-separated aliases, '*' marks abbreviation point
	Owner ObjID
	Perms string // subset of "rwxd"
	Sig   VerbSig
	Code  []string
}

// NameMatches reports whether cmd invokes this verb. Each alias may
// contain a single '*': the text before it is a mandatory prefix and
// the text after it may be partially typed ("g*et" matches "g", "ge",
// "get"). A bare "*" matches anything.
func (v *Verb) NameMatches(cmd string) bool {
	cmd = strings.ToLower(cmd)
	for _, name := range strings.Fields(strings.ToLower(v.Names)) {
		if name == "*" {
			return true
		}
		star := strings.IndexByte(name, '*')
		if star < 0 {
			if cmd == name {
				return true
			}
			continue
		}
		full := name[:star] + name[star+1:]
		if len(cmd) >= star && len(cmd) <= len(full) && strings.HasPrefix(full, cmd) {
			return true
		}
	}
	return false
}

// FirstName returns the verb's primary name with any '*' stripped.
func (v *Verb) FirstName() string {
	fields := strings.Fields(v.Names)
	if len(fields) == 0 {
		return ""
	}
	return strings.ReplaceAll(fields[0], "*", "")
}

// FindVerbs returns all verbs named name on obj or its ancestors, in
// declaration order, nearest ancestor first.
func (db *Database) FindVerbs(obj ObjID, name string) []*Verb {
	var out []*Verb
	for _, id := range db.Ancestry(obj) {
		o, ok := db.Objects[id]
		if !ok {
			continue
		}
		for _, v := range o.Verbs {
			if v.NameMatches(name) {
				out = append(out, v)
			}
		}
	}
	return out
}

// VerbHome returns the object in obj's ancestry that actually defines
// v, or Nothing.
func (db *Database) VerbHome(obj ObjID, v *Verb) ObjID {
	for _, id := range db.Ancestry(obj) {
		o, ok := db.Objects[id]
		if !ok {
			continue
		}
		for _, ov := range o.Verbs {
			if ov == v {
				return id
			}
		}
	}
	return Nothing
}
