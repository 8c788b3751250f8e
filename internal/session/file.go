package session

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-faster/errors"
	toml "github.com/pelletier/go-toml/v2"
)

// DefaultPath is where the token lives unless configured otherwise.
const DefaultPath = "~/.config/grocer/session.toml"

var _ Store = (*File)(nil)

type document struct {
	Token   string    `toml:"token"`
	SavedAt time.Time `toml:"saved_at"`
}

// File persists the token in a TOML file readable only by the owner.
// The token is cached in memory; Watch keeps the cache in sync with writes
// made by other processes.
type File struct {
	path string

	mu    sync.RWMutex
	token string
}

// OpenFile resolves path (a leading ~ expands to the home directory) and
// loads the token stored there. A missing file yields an empty session.
func OpenFile(path string) (*File, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}
	resolved, err := expandPath(path)
	if err != nil {
		return nil, err
	}

	f := &File{path: resolved}
	token, err := f.read()
	if err != nil {
		return nil, err
	}
	f.token = token
	return f, nil
}

// Path returns the resolved file location.
func (f *File) Path() string { return f.path }

func (f *File) Token() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.token
}

// Save writes token atomically (temp file + rename).
func (f *File) Save(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return errors.Wrap(err, "create session dir")
	}

	data, err := toml.Marshal(document{Token: token, SavedAt: time.Now().UTC()})
	if err != nil {
		return errors.Wrap(err, "marshal session")
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".session-*")
	if err != nil {
		return errors.Wrap(err, "create temp session file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "write session")
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "chmod session")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close session")
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return errors.Wrap(err, "replace session file")
	}

	f.token = token
	return nil
}

// Clear removes the session file.
func (f *File) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "remove session file")
	}
	f.token = ""
	return nil
}

// Watch reports token changes made to the file by other processes until ctx
// is cancelled. fn receives the new token ("" after a logout elsewhere).
func (f *File) Watch(ctx context.Context, fn func(token string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create watcher")
	}
	defer func() { _ = w.Close() }()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "create session dir")
	}
	// The file itself is replaced on every save, so watch its directory.
	if err := w.Add(dir); err != nil {
		return errors.Wrapf(err, "watch %s", dir)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return errors.Wrap(err, "watch session")
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != f.path {
				continue
			}
			if changed, token := f.reload(); changed {
				fn(token)
			}
		}
	}
}

func (f *File) reload() (bool, string) {
	token, err := f.read()
	if err != nil {
		// Partially written file; the rename that follows fires another event.
		return false, ""
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if token == f.token {
		return false, token
	}
	f.token = token
	return true, token
}

func (f *File) read() (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", errors.Wrap(err, "read session")
	}

	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return "", errors.Wrap(err, "parse session")
	}
	return strings.TrimSpace(doc.Token), nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "resolve home dir")
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", errors.Wrap(err, "resolve session path")
	}
	return abs, nil
}
