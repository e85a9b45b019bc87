package events

import "github.com/crystal-mush/gomoo/pkg/moodb"

// EventType classifies events for transport-specific encoding.
type EventType int

const (
	EvText        EventType = iota // Raw text (universal fallback)
	EvSay                          // Speech
	EvEmote                        // Emote
	EvMove                         // Arrive/depart
	EvConnect                      // Player connected
	EvDisconnect                   // Player disconnected
	EvEditOpen                     // Verb loaded into the editor
	EvEditClose                    // Editor session ended (abort/evict)
	EvCompileOK                    // Verb compiled successfully
	EvCompileFail                  // Compile returned diagnostics
)

// String returns a human-readable name for the event type.
func (t EventType) String() string {
	switch t {
	case EvText:
		return "text"
	case EvSay:
		return "say"
	case EvEmote:
		return "emote"
	case EvMove:
		return "move"
	case EvConnect:
		return "connect"
	case EvDisconnect:
		return "disconnect"
	case EvEditOpen:
		return "edit_open"
	case EvEditClose:
		return "edit_close"
	case EvCompileOK:
		return "compile_ok"
	case EvCompileFail:
		return "compile_fail"
	default:
		return "unknown"
	}
}

// Event is a structured game event that flows through the event bus.
// Transports decide how to encode each event: telnet uses Text,
// WebSocket clients get the structured data.
type Event struct {
	Type   EventType
	Player moodb.ObjID // Recipient (Nothing for broadcast)
	Source moodb.ObjID // Who generated the event
	Verb   string      // obj:verb reference text for editor events
	Text   string      // Pre-formatted text (telnet uses this)
	Data   map[string]any
}
