package server

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/crystal-mush/gomoo/pkg/editor"
	"github.com/crystal-mush/gomoo/pkg/moodb"
)

func auditSession(t *testing.T, g *Game) *editor.Session {
	t.Helper()
	ref, err := g.Resolver.Parse(2, "widget:poke")
	if err != nil {
		t.Fatal(err)
	}
	res, err := g.Resolver.Resolve(ref)
	if err != nil {
		t.Fatal(err)
	}
	sess, err := g.Sessions.Open(2, res, []string{"return 1;"})
	if err != nil {
		t.Fatal(err)
	}
	return sess
}

func TestAuditRecordAndRecent(t *testing.T) {
	g := newTestGame()
	sess := auditSession(t, g)

	log, err := OpenAuditLog(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer log.Close()

	log.Record(2, sess, "", editor.CompileResult{}, nil)
	log.Record(2, sess, "widget:handle", editor.CompileResult{
		Diagnostics: []string{"Line 1: oops.", "1 error."},
	}, nil)
	log.Record(2, sess, "", editor.CompileResult{}, errors.New("storage offline"))

	entries, err := log.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	// Newest first.
	if entries[0].Outcome != "error" || entries[0].Detail != "storage offline" {
		t.Fatalf("entries[0] = %+v", entries[0])
	}
	if entries[1].Outcome != "diagnostics" || entries[1].Override != "widget:handle" {
		t.Fatalf("entries[1] = %+v", entries[1])
	}
	if entries[2].Outcome != "ok" || entries[2].Target != "#100:poke" {
		t.Fatalf("entries[2] = %+v", entries[2])
	}
	if entries[2].Player != int(moodb.ObjID(2)) || entries[2].Lines != 1 {
		t.Fatalf("entries[2] = %+v", entries[2])
	}
}

func TestAuditRecentLimit(t *testing.T) {
	g := newTestGame()
	sess := auditSession(t, g)

	log, err := OpenAuditLog(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer log.Close()

	for i := 0; i < 5; i++ {
		log.Record(2, sess, "", editor.CompileResult{}, nil)
	}
	entries, err := log.Recent(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
}
