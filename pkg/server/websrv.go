package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/crystal-mush/gomoo/pkg/events"
	"github.com/crystal-mush/gomoo/pkg/moodb"
)

// WebConfig holds configuration for the web server.
type WebConfig struct {
	Port        int
	Host        string
	CertFile    string
	KeyFile     string
	CORSOrigins []string
	JWTSecret   string
	JWTExpiry   int
}

// WebServer provides HTTP/WebSocket transport alongside the TCP game server.
type WebServer struct {
	game      *Game
	httpSrv   *http.Server
	mux       *http.ServeMux
	auth      *AuthService
	upgrader  websocket.Upgrader
	enqueue   func(d *Descriptor, line string)
	startTime time.Time
}

// NewWebServer creates a web server bound to the game.
func NewWebServer(game *Game, cfg WebConfig) *WebServer {
	ws := &WebServer{
		game:      game,
		mux:       http.NewServeMux(),
		auth:      NewAuthService(game, cfg.JWTSecret, cfg.JWTExpiry),
		startTime: time.Now(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(cfg.CORSOrigins) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				for _, o := range cfg.CORSOrigins {
					if strings.EqualFold(o, origin) {
						return true
					}
				}
				return false
			},
		},
	}
	ws.registerRoutes(cfg)
	return ws
}

// SetServer routes websocket input through the server's game loop so
// web clients share the single thread of command execution.
func (ws *WebServer) SetServer(s *Server) {
	ws.enqueue = s.Enqueue
}

// Auth returns the auth service for external use.
func (ws *WebServer) Auth() *AuthService {
	return ws.auth
}

func (ws *WebServer) registerRoutes(cfg WebConfig) {
	handler := corsMiddleware(cfg.CORSOrigins, ws.mux)

	ws.httpSrv = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: handler,
	}

	ws.mux.HandleFunc("GET /ws", ws.handleWebSocket)
	ws.RegisterRESTRoutes()
	ws.mux.HandleFunc("GET /health", ws.handleHealth)

	if ws.game.Metrics == nil {
		ws.game.Metrics = NewMetrics(ws.game, ws.startTime)
	}
	ws.mux.Handle("GET /metrics", ws.game.Metrics.Handler())
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":  "ok",
		"uptime":  time.Since(ws.startTime).Seconds(),
		"players": ws.game.Conns.Count(),
	})
}

// Start begins listening. Uses HTTPS when cert and key files are
// configured, plain HTTP otherwise.
func (ws *WebServer) Start(cfg WebConfig) error {
	if cfg.CertFile != "" && cfg.KeyFile != "" {
		log.Printf("Web server listening on %s (HTTPS)", ws.httpSrv.Addr)
		err := ws.httpSrv.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
	log.Printf("Web server listening on %s (HTTP)", ws.httpSrv.Addr)
	err := ws.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts down the web server.
func (ws *WebServer) Stop(ctx context.Context) error {
	return ws.httpSrv.Shutdown(ctx)
}

// --- WebSocket Handler ---

// WSMessage is the JSON message format for WebSocket communication.
type WSMessage struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Verb    string `json:"verb,omitempty"`
	Command string `json:"command,omitempty"`
}

// handleWebSocket upgrades an HTTP connection to a WebSocket and
// creates a game Descriptor for the client.
func (ws *WebServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	var claims *Claims
	token := r.URL.Query().Get("token")
	if token == "" {
		token, _ = bearerToken(r)
	}
	if token != "" {
		var err error
		claims, err = ws.auth.ValidateToken(token)
		if err != nil {
			http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
			return
		}
	}

	wsc, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	d, wc := newWSDescriptor(ws.game, wsc, clientAddr(r))
	ws.game.Conns.Add(d)
	log.Printf("[ws:%d] WebSocket connection from %s", d.ID, d.Addr)

	if claims != nil {
		ws.game.Conns.Login(d, claims.PlayerRef)
		wc.sendJSON(WSMessage{Type: "login", Text: claims.PlayerName})
		ws.game.ShowRoom(d, ws.game.PlayerLocation(claims.PlayerRef))
	} else {
		wc.sendJSON(WSMessage{Type: "welcome",
			Text: "Connected. Send {\"type\":\"command\",\"command\":\"connect name password\"} to authenticate."})
	}

	go ws.wsReadLoop(d, wc)
}

// clientAddr prefers the first X-Forwarded-For hop when a proxy sits
// in front of the web server.
func clientAddr(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	return r.RemoteAddr
}

// wsConn holds the WebSocket connection and its write mutex.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (wc *wsConn) sendJSON(msg WSMessage) {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	wc.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	wc.conn.WriteJSON(msg)
}

// newWSDescriptor creates a Descriptor configured for WebSocket
// transport: SendFunc and ReceiveFunc write JSON to the WS conn.
func newWSDescriptor(game *Game, conn *websocket.Conn, addr string) (*Descriptor, *wsConn) {
	wc := &wsConn{conn: conn}
	d := &Descriptor{
		ID:        game.Conns.NextID(),
		Conn:      nullConn{},
		State:     ConnLogin,
		Player:    moodb.Nothing,
		Addr:      addr,
		ConnTime:  time.Now(),
		LastCmd:   time.Now(),
		Transport: TransportWebSocket,
	}
	d.SendFunc = func(msg string) {
		wc.sendJSON(WSMessage{Type: "text", Text: msg})
	}
	d.ReceiveFunc = func(ev events.Event) {
		wc.sendJSON(WSMessage{Type: ev.Type.String(), Text: ev.Text, Verb: ev.Verb})
	}
	return d, wc
}

func (ws *WebServer) wsReadLoop(d *Descriptor, wc *wsConn) {
	defer func() {
		ws.game.Conns.Remove(d)
		d.Close()
		wc.conn.Close()
		log.Printf("[ws:%d] WebSocket closed from %s", d.ID, d.Addr)
	}()

	for {
		_, msgBytes, err := wc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws:%d] read error: %v", d.ID, err)
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			wc.sendJSON(WSMessage{Type: "error", Text: "Invalid JSON message"})
			continue
		}
		if msg.Type != "command" || msg.Command == "" {
			continue
		}
		if ws.enqueue != nil {
			ws.enqueue(d, msg.Command)
		} else if d.State == ConnLogin {
			ws.game.HandleLogin(d, msg.Command)
		} else {
			ws.game.DispatchCommand(d, msg.Command)
		}
		if d.IsClosed() {
			return
		}
	}
}
