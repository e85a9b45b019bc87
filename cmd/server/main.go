package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/crystal-mush/gomoo/pkg/boltstore"
	"github.com/crystal-mush/gomoo/pkg/server"
)

// envDefault returns the environment variable value if set, otherwise the fallback.
func envDefault(envVar, fallback string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return fallback
}

func main() {
	confFile := flag.String("conf", envDefault("MOO_CONF", ""), "Path to game config file (.yaml) (env: MOO_CONF)")
	boltPath := flag.String("bolt", envDefault("MOO_BOLT", ""), "Path to bbolt database, overrides config (env: MOO_BOLT)")
	port := flag.Int("port", 0, "TCP port to listen on, overrides config (env: MOO_PORT)")
	textDir := flag.String("textdir", envDefault("MOO_TEXTDIR", ""), "Path to text files directory, overrides config (env: MOO_TEXTDIR)")
	wizPass := flag.String("wizpass", envDefault("MOO_WIZPASS", ""), "Set the Wizard (#2) password and exit (env: MOO_WIZPASS)")
	flag.Parse()

	if *port == 0 {
		if envPort := os.Getenv("MOO_PORT"); envPort != "" {
			if p, err := strconv.Atoi(envPort); err == nil {
				*port = p
			}
		}
	}

	conf := server.DefaultGameConf()
	if *confFile != "" {
		var err error
		conf, err = server.LoadGameConf(*confFile)
		if err != nil {
			log.Fatalf("Config: %v", err)
		}
	}
	if *boltPath != "" {
		conf.DBPath = *boltPath
	}
	if *port != 0 {
		conf.Port = *port
	}
	if *textDir != "" {
		conf.TextDir = *textDir
	}

	store, err := boltstore.Open(conf.DBPath)
	if err != nil {
		log.Fatalf("Opening database: %v", err)
	}
	defer store.Close()

	fresh := !store.HasData()
	if !fresh {
		if err := store.LoadAll(); err != nil {
			log.Fatalf("Loading database: %v", err)
		}
	} else {
		password := *wizPass
		if password == "" {
			password = "potrzebie"
			log.Printf("Fresh database: Wizard (#2) password defaults to %q; change it with -wizpass", password)
		}
		db, err := server.BootstrapWorld(password)
		if err != nil {
			log.Fatalf("Bootstrapping world: %v", err)
		}
		if err := store.ImportFromDatabase(db); err != nil {
			log.Fatalf("Writing initial world: %v", err)
		}
	}

	// -wizpass on an existing database: reset and exit. On a fresh
	// database the password was already applied during bootstrap.
	if *wizPass != "" && !fresh {
		if obj, ok := store.DB().Objects[2]; ok {
			hash, err := server.HashPassword(*wizPass)
			if err != nil {
				log.Fatalf("Hashing password: %v", err)
			}
			obj.Password = hash
			if err := store.PutObject(obj); err != nil {
				log.Fatalf("Saving password: %v", err)
			}
			fmt.Println("Wizard password updated.")
			return
		}
		log.Fatalf("No Wizard (#2) in database")
	}

	game := server.NewGame(store.DB(), conf)
	game.Store = store
	game.ConfPath = *confFile
	game.TextDir = conf.TextDir
	game.Texts = server.LoadTextFiles(conf.TextDir)
	game.WatchTextFiles()

	if conf.AuditDB != "" {
		audit, err := server.OpenAuditLog(conf.AuditDB)
		if err != nil {
			log.Fatalf("Opening audit log: %v", err)
		}
		defer audit.Close()
		game.Audit = audit
	}

	cfg := server.DefaultConfig()
	cfg.Port = conf.Port
	cfg.SessionIdle = conf.SessionIdle()
	if conf.TLSPort > 0 && conf.TLSCertFile != "" && conf.TLSKeyFile != "" {
		cfg.TLS = true
		cfg.TLSPort = conf.TLSPort
		cfg.TLSCert = conf.TLSCertFile
		cfg.TLSKey = conf.TLSKeyFile
	}

	srv := server.NewServer(game, cfg)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received %v, shutting down", sig)
		srv.Stop()
		time.Sleep(250 * time.Millisecond)
		os.Exit(0)
	}()

	log.Printf("Starting %s on port %d", conf.MudName, conf.Port)
	if err := srv.Start(); err != nil {
		log.Fatalf("Server: %v", err)
	}
}
