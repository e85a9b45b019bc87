package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/crystal-mush/gomoo/pkg/events"
	"github.com/crystal-mush/gomoo/pkg/moodb"
)

// RegisterRESTRoutes registers all REST API endpoints on the web
// server's mux. Called from WebServer.registerRoutes.
func (ws *WebServer) RegisterRESTRoutes() {
	ws.mux.HandleFunc("POST /api/v1/login", ws.handleLogin)
	ws.mux.HandleFunc("POST /api/v1/refresh", ws.handleRefresh)

	ws.mux.Handle("GET /api/v1/who",
		authMiddleware(ws.auth, http.HandlerFunc(ws.handleWho)))
	ws.mux.Handle("GET /api/v1/objects/{ref}/verbs",
		authMiddleware(ws.auth, http.HandlerFunc(ws.handleVerbs)))

	// Editor session administration (wizards only)
	ws.mux.Handle("GET /api/v1/sessions",
		authMiddleware(ws.auth, wizardOnly(ws.game, http.HandlerFunc(ws.handleSessions))))
	ws.mux.Handle("DELETE /api/v1/sessions/{ref}",
		authMiddleware(ws.auth, wizardOnly(ws.game, http.HandlerFunc(ws.handleAbortSession))))
	ws.mux.Handle("GET /api/v1/audit",
		authMiddleware(ws.auth, wizardOnly(ws.game, http.HandlerFunc(ws.handleAudit))))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (ws *WebServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	token, err := ws.auth.Login(req.Name, req.Password)
	if err != nil {
		http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
		return
	}
	writeJSON(w, map[string]any{"token": token})
}

func (ws *WebServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	token, err := ws.auth.RefreshToken(req.Token)
	if err != nil {
		http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
		return
	}
	writeJSON(w, map[string]any{"token": token})
}

func (ws *WebServer) handleWho(w http.ResponseWriter, r *http.Request) {
	type whoEntry struct {
		Name    string `json:"name"`
		Ref     int    `json:"ref"`
		OnFor   string `json:"on_for"`
		Idle    string `json:"idle"`
		Editing string `json:"editing,omitempty"`
	}

	now := time.Now()
	var entries []whoEntry
	for _, dd := range ws.game.Conns.All() {
		if dd.State != ConnConnected {
			continue
		}
		name := "<unknown>"
		if obj, ok := ws.game.DB.Objects[dd.Player]; ok {
			name = obj.Name
		}
		entries = append(entries, whoEntry{
			Name:    name,
			Ref:     int(dd.Player),
			OnFor:   shortDuration(now.Sub(dd.ConnTime)),
			Idle:    shortDuration(now.Sub(dd.LastCmd)),
			Editing: ws.game.SessionNote(dd.Player),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	writeJSON(w, map[string]any{"players": entries, "count": len(entries)})
}

func (ws *WebServer) handleVerbs(w http.ResponseWriter, r *http.Request) {
	ref, err := strconv.Atoi(r.PathValue("ref"))
	if err != nil {
		http.Error(w, `{"error":"bad object ref"}`, http.StatusBadRequest)
		return
	}
	obj, ok := ws.game.DB.Objects[moodb.ObjID(ref)]
	if !ok {
		http.Error(w, `{"error":"no such object"}`, http.StatusNotFound)
		return
	}
	type verbEntry struct {
		Names string `json:"names"`
		Owner int    `json:"owner"`
		Perms string `json:"perms"`
		Sig   string `json:"sig"`
		Lines int    `json:"lines"`
	}
	var verbs []verbEntry
	for _, v := range obj.Verbs {
		verbs = append(verbs, verbEntry{
			Names: v.Names,
			Owner: int(v.Owner),
			Perms: v.Perms,
			Sig:   v.Sig.String(),
			Lines: len(v.Code),
		})
	}
	writeJSON(w, map[string]any{"object": int(obj.ID), "name": obj.Name, "verbs": verbs})
}

func (ws *WebServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	type sessEntry struct {
		Owner      int    `json:"owner"`
		OwnerName  string `json:"owner_name"`
		Target     string `json:"target"`
		Lines      int    `json:"lines"`
		Dirty      bool   `json:"dirty"`
		Opened     string `json:"opened"`
		LastActive string `json:"last_active"`
	}
	var sessions []sessEntry
	for _, s := range ws.game.Sessions.All() {
		ownerName := ""
		if obj, ok := ws.game.DB.Objects[s.Owner]; ok {
			ownerName = obj.Name
		}
		sessions = append(sessions, sessEntry{
			Owner:      int(s.Owner),
			OwnerName:  ownerName,
			Target:     s.Target.Home.String() + ":" + s.Target.Verb.FirstName(),
			Lines:      s.Buf.Len(),
			Dirty:      s.Buf.Dirty(),
			Opened:     s.Opened.Format(time.RFC3339),
			LastActive: s.LastActive.Format(time.RFC3339),
		})
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Owner < sessions[j].Owner })
	writeJSON(w, map[string]any{"sessions": sessions, "count": len(sessions)})
}

func (ws *WebServer) handleAbortSession(w http.ResponseWriter, r *http.Request) {
	ref, err := strconv.Atoi(r.PathValue("ref"))
	if err != nil {
		http.Error(w, `{"error":"bad player ref"}`, http.StatusBadRequest)
		return
	}
	owner := moodb.ObjID(ref)
	if err := ws.game.Sessions.Abort(owner); err != nil {
		http.Error(w, `{"error":"no session for that player"}`, http.StatusNotFound)
		return
	}
	ws.game.EventBus.EmitToPlayer(owner, events.Event{
		Type:   events.EvEditClose,
		Player: owner,
		Text:   "A wizard discarded your editing session.",
	})
	writeJSON(w, map[string]any{"aborted": ref})
}

func (ws *WebServer) handleAudit(w http.ResponseWriter, r *http.Request) {
	if ws.game.Audit == nil {
		http.Error(w, `{"error":"audit log disabled"}`, http.StatusNotFound)
		return
	}
	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	entries, err := ws.game.Audit.Recent(limit)
	if err != nil {
		http.Error(w, `{"error":"audit query failed"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"entries": entries, "count": len(entries)})
}
