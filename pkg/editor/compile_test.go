package editor

import (
	"errors"
	"reflect"
	"testing"

	"github.com/crystal-mush/gomoo/pkg/moodb"
)

// fakeStorage records writes and returns canned diagnostics.
type fakeStorage struct {
	diags      []string
	failWith   error
	wroteObj   moodb.ObjID
	wroteVerb  *moodb.Verb
	wroteLines []string
	writes     int
}

func (f *fakeStorage) FetchCode(obj moodb.ObjID, v *moodb.Verb) ([]string, error) {
	return append([]string(nil), v.Code...), nil
}

func (f *fakeStorage) WriteCode(obj moodb.ObjID, v *moodb.Verb, lines []string) ([]string, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.writes++
	f.wroteObj = obj
	f.wroteVerb = v
	f.wroteLines = append([]string(nil), lines...)
	return f.diags, nil
}

func (f *fakeStorage) ListSignatures(obj moodb.ObjID, name string) []moodb.VerbSig {
	return nil
}

// allowAll / denyAll are trivial authorities.
type allowAll struct{}

func (allowAll) CanWrite(player, obj moodb.ObjID, v *moodb.Verb) bool { return true }

type denyAll struct{}

func (denyAll) CanWrite(player, obj moodb.ObjID, v *moodb.Verb) bool { return false }

func compileEnv(t *testing.T) (*moodb.Database, *Resolver, *Store, *Session) {
	t.Helper()
	db, rs := testWorld()
	st := NewStore()
	target, err := rs.Resolve(VerbRef{Obj: 123, ObjName: "#123", Name: "do_thing"})
	if err != nil {
		t.Fatal(err)
	}
	sess, err := st.Open(5, target, []string{"x=1;", "return x;"})
	if err != nil {
		t.Fatal(err)
	}
	return db, rs, st, sess
}

func TestCompileSuccess(t *testing.T) {
	_, rs, _, sess := compileEnv(t)
	if err := sess.Buf.Insert(2, []string{"x=2;"}); err != nil {
		t.Fatal(err)
	}
	storage := &fakeStorage{}
	p := &Pipeline{Storage: storage, Auth: allowAll{}, Resolver: rs}

	res, err := p.Compile(sess, "")
	if err != nil {
		t.Fatal(err)
	}
	if !res.OK() {
		t.Fatalf("diagnostics: %v", res.Diagnostics)
	}
	want := []string{"x=1;", "x=2;", "return x;"}
	if !reflect.DeepEqual(storage.wroteLines, want) {
		t.Errorf("wrote %v, want %v", storage.wroteLines, want)
	}
	if sess.Buf.Dirty() {
		t.Error("successful compile must clear the dirty flag")
	}
	if sess.LastModified.IsZero() {
		t.Error("successful compile must stamp lastModified")
	}
}

func TestCompilePermissionFailureIsNoOp(t *testing.T) {
	_, rs, _, sess := compileEnv(t)
	sess.Buf.Insert(1, []string{"edit"})
	beforeLines := sess.Buf.Lines()
	beforeTarget := sess.Target

	storage := &fakeStorage{}
	p := &Pipeline{Storage: storage, Auth: denyAll{}, Resolver: rs}
	_, err := p.Compile(sess, "")
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	if storage.writes != 0 {
		t.Error("permission failure must not reach storage")
	}
	if !reflect.DeepEqual(sess.Buf.Lines(), beforeLines) || !sess.Buf.Dirty() {
		t.Error("buffer must be unchanged after failed compile")
	}
	if sess.Target != beforeTarget {
		t.Error("target must be unchanged after failed compile")
	}
}

func TestCompileAsBadSignatureKeepsSession(t *testing.T) {
	_, rs, _, sess := compileEnv(t)
	sess.Buf.Insert(1, []string{"edit"})

	beforeTarget := sess.Target
	storage := &fakeStorage{}
	p := &Pipeline{Storage: storage, Auth: allowAll{}, Resolver: rs}
	_, err := p.Compile(sess, "obj:do_thing this with this")
	if !errors.Is(err, ErrNoVerbWithSig) {
		t.Fatalf("expected no-verb-with-signature, got %v", err)
	}
	if !sess.Buf.Dirty() {
		t.Error("session must remain dirty after resolution failure")
	}
	if sess.Target != beforeTarget {
		t.Error("target must not be retargeted on failure")
	}
}

func TestCompileAsUnknownObjectKeepsSession(t *testing.T) {
	_, rs, _, sess := compileEnv(t)
	sess.Buf.Insert(1, []string{"edit"})
	beforeTarget := sess.Target

	storage := &fakeStorage{}
	p := &Pipeline{Storage: storage, Auth: allowAll{}, Resolver: rs}
	_, err := p.Compile(sess, "gizmo:verb")
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Residue != "gizmo" {
		t.Fatalf("expected object residue, got %v", err)
	}
	if storage.writes != 0 {
		t.Error("unknown destination must not reach storage")
	}
	if sess.Target != beforeTarget || !sess.Buf.Dirty() {
		t.Error("session must be unchanged after failed override")
	}
}

func TestCompileDiagnosticsKeepSession(t *testing.T) {
	_, rs, _, sess := compileEnv(t)
	sess.Buf.Insert(1, []string{"broken ("})
	beforeLines := sess.Buf.Lines()

	storage := &fakeStorage{diags: []string{"Line 1: parse error", "1 error."}}
	p := &Pipeline{Storage: storage, Auth: allowAll{}, Resolver: rs}
	res, err := p.Compile(sess, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.OK() {
		t.Fatal("expected diagnostics")
	}
	if !reflect.DeepEqual(res.Diagnostics, storage.diags) {
		t.Errorf("diagnostics must be verbatim: %v", res.Diagnostics)
	}
	if !sess.Buf.Dirty() || !reflect.DeepEqual(sess.Buf.Lines(), beforeLines) {
		t.Error("diagnostics must not mutate the session")
	}
}

func TestCompileAsRetargets(t *testing.T) {
	_, rs, _, sess := compileEnv(t)
	sess.Buf.Insert(1, []string{"edit"})

	storage := &fakeStorage{}
	p := &Pipeline{Storage: storage, Auth: allowAll{}, Resolver: rs}
	res, err := p.Compile(sess, "obj:verb")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Retargeted {
		t.Error("override must retarget on success")
	}
	if sess.Target.Verb.FirstName() != "verb" {
		t.Errorf("target: got %q, want %q", sess.Target.Verb.FirstName(), "verb")
	}
}

func TestCompileSubstitutionUsesPrivateCopy(t *testing.T) {
	_, rs, _, sess := compileEnv(t)
	sess.Buf.Insert(1, []string{"%n waves."})
	sess.SubstOnCompile = true

	storage := &fakeStorage{}
	p := &Pipeline{Storage: storage, Auth: allowAll{}, Resolver: rs,
		Subst: func(lines []string) []string {
			out := make([]string, len(lines))
			for i, l := range lines {
				out[i] = "SUB:" + l
			}
			return out
		}}
	if _, err := p.Compile(sess, ""); err != nil {
		t.Fatal(err)
	}
	if storage.wroteLines[0] != "SUB:%n waves." {
		t.Errorf("substitution not applied to written text: %q", storage.wroteLines[0])
	}
	if sess.Buf.Line(1) != "%n waves." {
		t.Error("substitution must not touch the session buffer")
	}
}
