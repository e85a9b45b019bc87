package editor

import (
	"time"

	"github.com/crystal-mush/gomoo/pkg/moodb"
)

// VerbStorage is the external verb code store. WriteCode performs
// syntax validation and permission revalidation atomically; it
// returns an ordered list of human-readable diagnostics on failure.
type VerbStorage interface {
	FetchCode(obj moodb.ObjID, v *moodb.Verb) ([]string, error)
	WriteCode(obj moodb.ObjID, v *moodb.Verb, lines []string) ([]string, error)
	ListSignatures(obj moodb.ObjID, name string) []moodb.VerbSig
}

// Authority is the single yes/no write-permission check. The editor
// performs no permission logic of its own beyond calling it.
type Authority interface {
	CanWrite(player, obj moodb.ObjID, v *moodb.Verb) bool
}

// SubstFunc is a deterministic text-substitution pass applied to a
// private copy of the buffer at compile time.
type SubstFunc func(lines []string) []string

// CompileResult reports the outcome of a compile attempt.
type CompileResult struct {
	Diagnostics []string // non-empty means the compile was rejected
	Retargeted  bool     // a destination override became the new target
}

// OK reports a fully successful compile.
func (r CompileResult) OK() bool { return len(r.Diagnostics) == 0 }

// Pipeline orchestrates resolution, authority, substitution, and the
// external write for compile submission.
type Pipeline struct {
	Storage  VerbStorage
	Auth     Authority
	Resolver *Resolver
	Subst    SubstFunc
}

// Compile submits the session's buffer. With a non-empty override
// ("object:verb [signature]") the destination is freshly parsed and
// resolved; otherwise it is the session's target. A failure at any
// step, from parse through diagnostics, leaves the session
// bit-for-bit unchanged so the attempt can be retried.
func (p *Pipeline) Compile(sess *Session, override string) (CompileResult, error) {
	dest := sess.Target
	if override != "" {
		ref, err := p.Resolver.Parse(sess.Owner, override)
		if err != nil {
			return CompileResult{}, err
		}
		if !ref.Obj.Valid() {
			return CompileResult{}, &ParseError{Residue: ref.ObjName}
		}
		dest, err = p.Resolver.Resolve(ref)
		if err != nil {
			return CompileResult{}, err
		}
	}

	if !p.Auth.CanWrite(sess.Owner, dest.Ref.Obj, dest.Verb) {
		return CompileResult{}, ErrPermissionDenied
	}

	lines := sess.Buf.Lines()
	if sess.SubstOnCompile && p.Subst != nil {
		lines = p.Subst(lines)
	}

	diags, err := p.Storage.WriteCode(dest.Ref.Obj, dest.Verb, lines)
	if err != nil {
		// Storage unavailability: fatal for this command, not for
		// the session.
		return CompileResult{}, err
	}
	if len(diags) > 0 {
		return CompileResult{Diagnostics: diags}, nil
	}

	sess.Buf.ClearDirty()
	sess.LastModified = time.Now()
	retargeted := false
	if override != "" {
		sess.Target = dest
		retargeted = true
	}
	return CompileResult{Retargeted: retargeted}, nil
}
