package server

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// trackedFiles are the text files served at connection lifecycle
// points, cached in memory and reloaded when they change on disk.
var trackedFiles = []struct {
	Name string
	Desc string
}{
	{"welcome.txt", "welcome screen"},
	{"motd.txt", "post-login MOTD"},
	{"help.txt", "editor help"},
}

// TextFiles holds cached text file contents keyed by filename.
type TextFiles struct {
	mu    sync.RWMutex
	dir   string
	files map[string]string
}

// LoadTextFiles reads the tracked files from dir. Missing files are
// cached as empty strings (no error).
func LoadTextFiles(dir string) *TextFiles {
	tf := &TextFiles{dir: dir, files: make(map[string]string)}
	tf.loadAll()
	return tf
}

// Get returns the cached contents of a tracked file, trailing
// whitespace trimmed, or "".
func (tf *TextFiles) Get(name string) string {
	tf.mu.RLock()
	defer tf.mu.RUnlock()
	return strings.TrimRight(tf.files[name], "\r\n")
}

func (tf *TextFiles) loadAll() {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	count := 0
	for _, t := range trackedFiles {
		data, err := os.ReadFile(filepath.Join(tf.dir, t.Name))
		if err != nil {
			tf.files[t.Name] = ""
			continue
		}
		tf.files[t.Name] = string(data)
		count++
	}
	log.Printf("Loaded %d text files from %s", count, tf.dir)
}

func (tf *TextFiles) reload(name string) {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	data, err := os.ReadFile(filepath.Join(tf.dir, name))
	if err != nil {
		return
	}
	tf.files[name] = string(data)
}

// NotifyWizards sends a message to all connected wizards.
func (g *Game) NotifyWizards(msg string) {
	for _, dd := range g.Conns.All() {
		if dd.State != ConnConnected {
			continue
		}
		if Wizard(g, dd.Player) {
			dd.Send(msg)
		}
	}
}

// WatchTextFiles starts an fsnotify watcher on the text directory.
// Tracked files are reloaded when they change and connected wizards
// are told.
func (g *Game) WatchTextFiles() {
	if g.TextDir == "" || g.Texts == nil {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("WARNING: Could not start text file watcher: %v", err)
		return
	}

	tracked := make(map[string]bool)
	for _, t := range trackedFiles {
		tracked[t.Name] = true
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				name := filepath.Base(event.Name)
				if !tracked[name] {
					continue
				}
				g.Texts.reload(name)
				log.Printf("Text file reloaded: %s", name)
				g.NotifyWizards("GAME: Text file reloaded from disk: " + name)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("Text file watcher error: %v", err)
			}
		}
	}()

	if err := watcher.Add(g.TextDir); err != nil {
		log.Printf("WARNING: Could not watch text directory %s: %v", g.TextDir, err)
		watcher.Close()
		return
	}
	log.Printf("Watching text directory for changes: %s", g.TextDir)
}
