package server

import (
	"testing"

	"github.com/crystal-mush/gomoo/pkg/moodb"
)

func TestAuthLoginAndValidate(t *testing.T) {
	g := newTestGame()
	g.DB.Objects[2].Password, _ = HashPassword("pw")
	auth := NewAuthService(g, "test-secret", 3600)

	token, err := auth.Login("Mondrian", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.PlayerRef != 2 || claims.PlayerName != "Mondrian" || !claims.Wizard {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestAuthLoginBadCredentials(t *testing.T) {
	g := newTestGame()
	g.DB.Objects[2].Password, _ = HashPassword("pw")
	auth := NewAuthService(g, "test-secret", 3600)

	if _, err := auth.Login("Mondrian", "wrong"); err == nil {
		t.Fatal("wrong password should not yield a token")
	}
	if _, err := auth.Login("Nobody", "pw"); err == nil {
		t.Fatal("unknown player should not yield a token")
	}
}

func TestAuthRejectsForeignToken(t *testing.T) {
	g := newTestGame()
	g.DB.Objects[2].Password, _ = HashPassword("pw")

	issuer := NewAuthService(g, "secret-one", 3600)
	verifier := NewAuthService(g, "secret-two", 3600)

	token, err := issuer.Login("Mondrian", "pw")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := verifier.ValidateToken(token); err == nil {
		t.Fatal("token signed with another key must not validate")
	}
}

func TestAuthRefresh(t *testing.T) {
	g := newTestGame()
	g.DB.Objects[3].Password, _ = HashPassword("pw")
	auth := NewAuthService(g, "test-secret", 3600)

	token, err := auth.Login("Apprentice", "pw")
	if err != nil {
		t.Fatal(err)
	}
	refreshed, err := auth.RefreshToken(token)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, err := auth.ValidateToken(refreshed)
	if err != nil {
		t.Fatalf("validate refreshed: %v", err)
	}
	if claims.PlayerRef != moodb.ObjID(3) || claims.Wizard {
		t.Fatalf("claims = %+v", claims)
	}
}
