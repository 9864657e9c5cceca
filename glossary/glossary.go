// Package glossary maintains the list of terms the transcription backend
// must preserve verbatim. The list lives in a plain text file, one term per
// line; '#' lines and blank lines are skipped. Edits to the file are picked
// up live so a restart is not needed to teach the transcriber a new term.
package glossary

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ykdojo/osh/log"
)

const debounceInterval = 500 * time.Millisecond

// Glossary holds the current term list and optionally watches its backing
// file for changes. The zero value is an empty, unwatched glossary.
type Glossary struct {
	mu    sync.RWMutex
	path  string
	terms []string

	watcher *fsnotify.Watcher
	done    chan struct{}
	once    sync.Once
}

// Open loads the glossary file at path. A missing file yields an empty
// glossary, not an error: dictation works fine without preserved terms.
func Open(path string) (*Glossary, error) {
	g := &Glossary{path: path}
	if path == "" {
		return g, nil
	}
	terms, err := readTerms(path)
	if err != nil {
		if os.IsNotExist(err) {
			return g, nil
		}
		return nil, err
	}
	g.terms = terms
	return g, nil
}

// Terms returns a copy of the current term list.
func (g *Glossary) Terms() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.terms))
	copy(out, g.terms)
	return out
}

// Watch begins reloading the glossary whenever its file changes. Events are
// debounced so editors that write in bursts trigger one reload.
func (g *Glossary) Watch() error {
	if g.path == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory, not the file: editors replace files on save and
	// a watch on the old inode would go quiet.
	dir := filepath.Dir(g.path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return err
	}
	g.watcher = w
	g.done = make(chan struct{})
	go g.watchLoop()
	return nil
}

// Close stops the file watcher if one is running.
func (g *Glossary) Close() {
	g.once.Do(func() {
		if g.watcher != nil {
			close(g.done)
			g.watcher.Close()
		}
	})
}

func (g *Glossary) watchLoop() {
	var timer *time.Timer
	for {
		select {
		case <-g.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-g.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != filepath.Base(g.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceInterval, g.reload)
		case err, ok := <-g.watcher.Errors:
			if !ok {
				return
			}
			log.Warnf("glossary watcher: %v", err)
		}
	}
}

func (g *Glossary) reload() {
	terms, err := readTerms(g.path)
	if err != nil {
		log.Warnf("glossary reload: %v", err)
		return
	}
	g.mu.Lock()
	g.terms = terms
	g.mu.Unlock()
	log.Infof("glossary reloaded: %d terms", len(terms))
}

func readTerms(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var terms []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		terms = append(terms, line)
	}
	return terms, sc.Err()
}
