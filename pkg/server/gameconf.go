package server

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/crystal-mush/gomoo/pkg/moodb"
)

// GameConf holds game-level configuration parameters.
type GameConf struct {
	// --- Identity ---
	MudName string `yaml:"mud_name"`
	Port    int    `yaml:"port"`

	// --- TLS telnet listener (0 = disabled) ---
	TLSPort     int    `yaml:"tls_port"`
	TLSCertFile string `yaml:"tls_cert_file"`
	TLSKeyFile  string `yaml:"tls_key_file"`

	// --- Key objects ---
	StartRoom    moodb.ObjID `yaml:"start_room"`
	PlayerParent moodb.ObjID `yaml:"player_parent"`

	// --- Paths ---
	DBPath  string `yaml:"db_path"`
	TextDir string `yaml:"text_dir"`
	AuditDB string `yaml:"audit_db"` // sqlite compile audit log, "" = disabled

	// --- Editor ---
	// SessionIdleMinutes evicts editor sessions idle longer than this.
	// 0 keeps abandoned sessions forever so players can resume after a
	// reconnect.
	SessionIdleMinutes int `yaml:"session_idle_minutes"`
	FillWidth          int `yaml:"fill_width"`

	// --- Web/admin API (0 = disabled) ---
	WebPort        int      `yaml:"web_port"`
	JWTSecret      string   `yaml:"jwt_secret"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	// --- Idle/timeout ---
	IdleTimeout int `yaml:"idle_timeout"` // minutes, 0 = never boot
}

// DefaultGameConf returns a GameConf with sensible defaults.
func DefaultGameConf() *GameConf {
	return &GameConf{
		MudName:            "GoMOO",
		Port:               7777,
		StartRoom:          0,
		PlayerParent:       moodb.Nothing,
		DBPath:             "gomoo.db",
		TextDir:            "text",
		SessionIdleMinutes: 0,
		FillWidth:          70,
	}
}

// SessionIdle returns the editor eviction threshold as a duration.
func (gc *GameConf) SessionIdle() time.Duration {
	return time.Duration(gc.SessionIdleMinutes) * time.Minute
}

// IdleBoot returns the connection idle-boot threshold as a duration.
func (gc *GameConf) IdleBoot() time.Duration {
	return time.Duration(gc.IdleTimeout) * time.Minute
}

// LoadGameConf loads a YAML game config file over the defaults.
func LoadGameConf(path string) (*GameConf, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	gc := DefaultGameConf()
	if err := yaml.Unmarshal(data, gc); err != nil {
		return nil, fmt.Errorf("parsing YAML %s: %w", path, err)
	}
	return gc, nil
}
