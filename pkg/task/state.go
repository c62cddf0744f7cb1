package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Store persists one small JSON state document across task invocations.
// It is the only cross-invocation state the measurement core keeps; the
// device-count task uses it for its MAC-to-last-seen record.
type Store struct {
	Path string
}

// Read loads the state document into v. A missing or empty state file
// leaves v untouched.
func (s *Store) Read(v any) error {
	if s.Path == "" {
		return nil
	}

	raw, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading state: %v", err)
	}

	if len(raw) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decoding state: %v", err)
	}

	return nil
}

func (s *Store) Write(v any) error {
	if s.Path == "" {
		return errors.New("no state file configured")
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding state: %v", err)
	}

	if err := os.WriteFile(s.Path, raw, 0o644); err != nil {
		return fmt.Errorf("writing state: %v", err)
	}

	return nil
}
