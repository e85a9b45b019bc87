package server

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/crystal-mush/gomoo/pkg/moodb"
)

// Config holds server configuration.
type Config struct {
	Port        int
	WelcomeText string
	Cleartext   bool
	TLS         bool
	TLSPort     int
	TLSCert     string
	TLSKey      string
	SessionIdle time.Duration // editor session eviction, 0 = never
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Port:        7777,
		WelcomeText: WelcomeText,
		Cleartext:   true,
	}
}

// inputLine is one line of player input queued for the game loop.
type inputLine struct {
	d    *Descriptor
	line string
}

// Server is the main TCP game server. All command execution happens on
// a single game-loop goroutine: connection readers only queue input, so
// no two commands ever run concurrently and session state needs no
// locking beyond what the stores do internally.
type Server struct {
	Config      Config
	Game        *Game
	listener    net.Listener
	tlsListener net.Listener
	webServer   *WebServer
	input       chan inputLine
	quit        chan struct{}
	stopOnce    sync.Once
}

// NewServer creates a new server instance around an existing Game.
func NewServer(game *Game, cfg Config) *Server {
	return &Server{
		Config: cfg,
		Game:   game,
		input:  make(chan inputLine, 256),
		quit:   make(chan struct{}),
	}
}

// Start begins listening for connections and blocks until the
// listeners shut down.
func (s *Server) Start() error {
	if !s.Config.Cleartext && !s.Config.TLS {
		return fmt.Errorf("both cleartext and TLS listeners are disabled; nothing to listen on")
	}

	go s.gameLoop()

	playerCount := 0
	for _, obj := range s.Game.DB.Objects {
		if obj.IsPlayer() {
			playerCount++
		}
	}
	log.Printf("Database: %d objects, %d players", len(s.Game.DB.Objects), playerCount)

	var wg sync.WaitGroup
	errCh := make(chan error, 3)

	if s.Config.Cleartext {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.Config.Port))
			if err != nil {
				errCh <- fmt.Errorf("cleartext listener: %w", err)
				return
			}
			s.listener = ln
			log.Printf("Listening (cleartext) on port %d", s.Config.Port)
			s.acceptLoop(ln)
		}()
	}

	if s.Config.TLS {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cert, err := tls.LoadX509KeyPair(s.Config.TLSCert, s.Config.TLSKey)
			if err != nil {
				errCh <- fmt.Errorf("TLS cert load: %w", err)
				return
			}
			tlsCfg := &tls.Config{Certificates: []tls.Certificate{cert}}
			ln, err := tls.Listen("tcp", fmt.Sprintf(":%d", s.Config.TLSPort), tlsCfg)
			if err != nil {
				errCh <- fmt.Errorf("TLS listener: %w", err)
				return
			}
			s.tlsListener = ln
			log.Printf("Listening (TLS) on port %d", s.Config.TLSPort)
			s.acceptLoop(ln)
		}()
	}

	if s.Game.Conf != nil && s.Game.Conf.WebPort > 0 {
		cfg := WebConfig{
			Port:        s.Game.Conf.WebPort,
			CertFile:    s.Game.Conf.TLSCertFile,
			KeyFile:     s.Game.Conf.TLSKeyFile,
			CORSOrigins: s.Game.Conf.AllowedOrigins,
			JWTSecret:   s.Game.Conf.JWTSecret,
		}
		s.webServer = NewWebServer(s.Game, cfg)
		s.webServer.SetServer(s)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.webServer.Start(cfg); err != nil {
				errCh <- fmt.Errorf("web server: %w", err)
			}
		}()
	}

	select {
	case err := <-errCh:
		return err
	default:
	}

	wg.Wait()
	return nil
}

// gameLoop executes queued commands one at a time and drives the
// periodic editor-session sweep.
func (s *Server) gameLoop() {
	sweep := time.NewTicker(time.Minute)
	defer sweep.Stop()
	for {
		select {
		case in := <-s.input:
			s.runCommand(in.d, in.line)
		case <-sweep.C:
			if s.Config.SessionIdle > 0 {
				s.Game.SweepSessions(s.Config.SessionIdle)
			}
			if s.Game.Conf != nil {
				if idle := s.Game.Conf.IdleBoot(); idle > 0 {
					s.Game.BootIdle(idle)
				}
			}
			s.Game.EventBus.Cleanup()
		case <-s.quit:
			return
		}
	}
}

func (s *Server) runCommand(d *Descriptor, line string) {
	if d.IsClosed() {
		return
	}
	if d.State == ConnLogin {
		s.Game.HandleLogin(d, line)
		return
	}
	s.Game.DispatchCommand(d, line)
}

// Enqueue queues one line of input for the game loop. Used by
// non-TCP transports so their commands share the single execution
// thread.
func (s *Server) Enqueue(d *Descriptor, line string) {
	select {
	case s.input <- inputLine{d: d, line: line}:
	case <-s.quit:
	}
}

// acceptLoop accepts connections on the given listener until it is closed.
func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("Accept error: %v", err)
			continue
		}
		go s.handleConnection(conn)
	}
}

// Stop closes all active listeners and the game loop.
func (s *Server) Stop() {
	s.stopOnce.Do(func() { close(s.quit) })
	if s.listener != nil {
		s.listener.Close()
	}
	if s.tlsListener != nil {
		s.tlsListener.Close()
	}
	if s.webServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.webServer.Stop(ctx)
	}
}

// handleConnection manages a single client connection lifecycle. It
// only reads: every complete line goes to the game loop for execution.
func (s *Server) handleConnection(conn net.Conn) {
	id := s.Game.Conns.NextID()
	d := NewDescriptor(id, conn)
	s.Game.Conns.Add(d)

	log.Printf("[%d] New connection from %s", d.ID, d.Addr)

	defer func() {
		s.disconnect(d)
		log.Printf("[%d] Connection closed from %s", d.ID, d.Addr)
	}()

	if s.Game.Texts != nil {
		if txt := s.Game.Texts.Get("welcome.txt"); txt != "" {
			d.Send(txt)
		} else {
			d.Send(s.Config.WelcomeText)
		}
	} else {
		d.Send(s.Config.WelcomeText)
	}

	scanner := bufio.NewScanner(d.Conn)
	scanner.Buffer(make([]byte, 8192), 8192)

	for scanner.Scan() {
		if d.IsClosed() {
			return
		}
		line := scanner.Text()
		d.BytesRecv += len(line) + 1
		line = stripTelnet(line)
		line = strings.TrimRight(line, "\r\n")

		select {
		case s.input <- inputLine{d: d, line: line}:
		case <-s.quit:
			return
		}

		if d.IsClosed() {
			return
		}
	}
}

// disconnect tears down a descriptor's game presence. The editor
// session is left alone: it survives the disconnect and the player
// resumes it on the next login.
func (s *Server) disconnect(d *Descriptor) {
	if d.State == ConnConnected && d.Player != moodb.Nothing {
		if obj, ok := s.Game.DB.Objects[d.Player]; ok {
			log.Printf("login: %s (%s) disconnected", obj.Name, d.Player)
		}
	}
	s.Game.Conns.Remove(d)
	d.Close()
}

// stripTelnet removes IAC sequences and stray control bytes.
func stripTelnet(s string) string {
	var buf strings.Builder
	i := 0
	for i < len(s) {
		if s[i] == 0xFF && i+2 < len(s) {
			i += 3
			continue
		}
		if s[i] == 0xFF && i+1 < len(s) {
			i += 2
			continue
		}
		if s[i] < 32 && s[i] != '\t' && s[i] != '\n' && s[i] != '\r' {
			i++
			continue
		}
		buf.WriteByte(s[i])
		i++
	}
	return buf.String()
}
