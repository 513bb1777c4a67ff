package antispam

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrNoPath is returned by Save when neither an explicit path nor a remembered one is available.
var ErrNoPath = errors.New("no destination path")

// FormatError is returned when persisted model content doesn't parse as a model triple.
type FormatError struct {
	Path string // source of the data, empty for streams
	Err  error  // underlying parse error
}

// Error implements error interface
func (e *FormatError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid model format: %v", e.Err)
	}
	return fmt.Sprintf("invalid model format in %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying parse error
func (e *FormatError) Unwrap() error { return e.Err }

// Counts keeps the number of ham and spam occurrences of a single token.
// Persisted as a two-element array [ham, spam].
type Counts struct {
	Ham  int64
	Spam int64
}

// Model is the trained state: global message counters and per-token counts.
// Model is not thread-safe, Detector serializes access to it.
type Model struct {
	SpamTotal int64             // number of messages trained as spam
	HamTotal  int64             // number of messages trained as ham
	Tokens    map[string]Counts // per-token ham/spam occurrences

	path string // remembered location, set by Load and Save
}

// Stats is a summary of the model
type Stats struct {
	SpamTotal int64 `json:"spam_total"`
	HamTotal  int64 `json:"ham_total"`
	Tokens    int   `json:"tokens"`
}

// NewModel makes an empty in-memory model
func NewModel() *Model {
	return &Model{Tokens: map[string]Counts{}}
}

// Path returns the remembered model location, empty for pure in-memory model
func (m *Model) Path() string { return m.path }

// Stats returns totals and the number of distinct tokens
func (m *Model) Stats() Stats {
	return Stats{SpamTotal: m.SpamTotal, HamTotal: m.HamTotal, Tokens: len(m.Tokens)}
}

// Clone makes a deep copy of the model, including the remembered path
func (m *Model) Clone() *Model {
	res := &Model{SpamTotal: m.SpamTotal, HamTotal: m.HamTotal, path: m.path, Tokens: make(map[string]Counts, len(m.Tokens))}
	for k, v := range m.Tokens {
		res.Tokens[k] = v
	}
	return res
}

// Load reads the model from the file. Missing file is created empty first, so loading a
// fresh location fails with FormatError, same as any empty or malformed content.
// The remembered path is set to the given one even if parsing fails.
// I/O errors are returned as-is.
func (m *Model) Load(path string) error {
	m.path = path
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err = touch(path); err != nil {
			return err
		}
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is controlled by the caller
	if err != nil {
		return err
	}
	if err := m.decode(data); err != nil {
		return &FormatError{Path: path, Err: err}
	}
	return nil
}

// Save writes the model to the path, or to the remembered path if the one passed is empty.
// Returns ErrNoPath if no location known. Successful save makes the path remembered.
// The file is truncated and rewritten, not replaced atomically.
func (m *Model) Save(path string) error {
	if path == "" {
		path = m.path
	}
	if path == "" {
		return ErrNoPath
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("can't marshal model: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // model is not a secret
		return err
	}
	m.path = path
	return nil
}

// Encode writes the model triple to the writer
func (m *Model) Encode(w io.Writer) error {
	if err := json.NewEncoder(w).Encode(m); err != nil {
		return fmt.Errorf("can't encode model: %w", err)
	}
	return nil
}

// Decode reads the model triple from the reader. Nothing is changed on FormatError.
func (m *Model) Decode(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("can't read model: %w", err)
	}
	if err := m.decode(data); err != nil {
		return &FormatError{Err: err}
	}
	return nil
}

// MarshalJSON encodes the model as [spam_total, ham_total, {token: [ham, spam]}]
func (m *Model) MarshalJSON() ([]byte, error) {
	tokens := m.Tokens
	if tokens == nil {
		tokens = map[string]Counts{}
	}
	return json.Marshal([]any{m.SpamTotal, m.HamTotal, tokens})
}

// UnmarshalJSON decodes the model triple, all-or-nothing
func (m *Model) UnmarshalJSON(data []byte) error {
	return m.decode(data)
}

// MarshalJSON encodes counts as [ham, spam]
func (c Counts) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int64{c.Ham, c.Spam})
}

// UnmarshalJSON decodes [ham, spam] pair of non-negative integers
func (c *Counts) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := strictUnmarshal(data, &pair); err != nil {
		return fmt.Errorf("token counts: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("token counts: expected 2 elements, got %d", len(pair))
	}
	ham, err := parseCount(pair[0])
	if err != nil {
		return fmt.Errorf("ham count: %w", err)
	}
	spam, err := parseCount(pair[1])
	if err != nil {
		return fmt.Errorf("spam count: %w", err)
	}
	c.Ham, c.Spam = ham, spam
	return nil
}

func (m *Model) decode(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return errors.New("empty content")
	}

	var triple []json.RawMessage
	if err := strictUnmarshal(data, &triple); err != nil {
		return err
	}
	if len(triple) != 3 {
		return fmt.Errorf("expected 3 elements, got %d", len(triple))
	}

	spamTotal, err := parseCount(triple[0])
	if err != nil {
		return fmt.Errorf("spam total: %w", err)
	}
	hamTotal, err := parseCount(triple[1])
	if err != nil {
		return fmt.Errorf("ham total: %w", err)
	}

	tokens := map[string]Counts{}
	if err := strictUnmarshal(triple[2], &tokens); err != nil {
		return fmt.Errorf("token table: %w", err)
	}

	m.SpamTotal, m.HamTotal, m.Tokens = spamTotal, hamTotal, tokens
	return nil
}

// strictUnmarshal rejects json null, which encoding/json silently accepts for slices and maps
func strictUnmarshal(data []byte, v any) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return errors.New("unexpected null")
	}
	return json.Unmarshal(data, v)
}

func parseCount(data json.RawMessage) (int64, error) {
	var v int64
	if err := strictUnmarshal(data, &v); err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("negative value %d", v)
	}
	return v, nil
}

func touch(path string) error {
	fh, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // model is not a secret
	if err != nil {
		return err
	}
	return fh.Close()
}
