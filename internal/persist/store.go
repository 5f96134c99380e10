// Package persist stores client state between runs.
package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pkt.systems/notechat/schema"
	"pkt.systems/pslog"
)

const stateFile = "state.json"

// ClientSnapshot captures what the client restores on start.
type ClientSnapshot struct {
	Active  schema.SessionID `json:"active,omitempty"`
	History []string         `json:"history,omitempty"`
}

// Store persists client snapshots to disk.
type Store struct {
	dir string
	log pslog.Logger
}

// NewStore constructs a persistent store at the given directory.
func NewStore(dir string) (*Store, error) {
	return NewStoreWithLogger(dir, nil)
}

// NewStoreWithLogger constructs a persistent store with logging.
func NewStoreWithLogger(dir string, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("state directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	if logger != nil {
		logger = logger.With("state_dir", dir)
	}
	return &Store{dir: dir, log: logger}, nil
}

// Path returns the state file location.
func (s *Store) Path() string {
	return filepath.Join(s.dir, stateFile)
}

// Load reads the snapshot. ok is false when nothing was saved yet.
func (s *Store) Load() (ClientSnapshot, bool, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.debug("state load miss")
			return ClientSnapshot{}, false, nil
		}
		s.warn("state load failed", err)
		return ClientSnapshot{}, false, err
	}
	var snapshot ClientSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		err = fmt.Errorf("decode %s: %w", s.Path(), err)
		s.warn("state load failed", err)
		return ClientSnapshot{}, false, err
	}
	if s.log != nil {
		s.log.Debug("state load ok", "active", string(snapshot.Active), "history", len(snapshot.History))
	}
	return snapshot, true, nil
}

// Save writes the snapshot atomically.
func (s *Store) Save(snapshot ClientSnapshot) error {
	if err := s.write(snapshot); err != nil {
		s.warn("state save failed", err)
		return err
	}
	if s.log != nil {
		s.log.Trace("state save ok", "active", string(snapshot.Active), "history", len(snapshot.History))
	}
	return nil
}

func (s *Store) write(snapshot ClientSnapshot) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, "state-*.json")
	if err != nil {
		return err
	}
	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), s.Path()); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}

func (s *Store) debug(msg string) {
	if s.log != nil {
		s.log.Debug(msg)
	}
}

func (s *Store) warn(msg string, err error) {
	if s.log != nil {
		s.log.Warn(msg, "err", err)
	}
}
