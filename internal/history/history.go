// Package history persists session transcripts as plain text files, one file
// per session, readable without tooling.
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	quarry "github.com/quarryhq/quarry"
)

const separator = "---------------"

// FileStore implements quarry.HistoryStore on a directory of transcript
// files named chat_history_<session>.txt. Each turn is framed by separator
// lines so transcripts survive partial reads and manual edits.
type FileStore struct {
	dir string
}

var _ quarry.HistoryStore = (*FileStore)(nil)

// NewFileStore creates the directory if needed and returns a store over it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("history: create dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(sessionID string) string {
	return filepath.Join(s.dir, "chat_history_"+sessionID+".txt")
}

// AppendTurn appends one exchange to the session transcript and syncs it to
// disk before returning, so a turn reported as persisted survives a crash.
func (s *FileStore) AppendTurn(sessionID string, t quarry.Turn) error {
	f, err := os.OpenFile(s.path(sessionID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("history: open transcript: %w", err)
	}

	var b strings.Builder
	b.WriteString(separator + "\n")
	b.WriteString("User: " + sanitizeLine(t.Query) + "\n")
	b.WriteString("AI: " + sanitizeLine(t.Response) + "\n")

	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return fmt.Errorf("history: append turn: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("history: sync transcript: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("history: close transcript: %w", err)
	}
	return nil
}

// LoadTurns reads the session transcript back as completed turns. A missing
// file is an empty history, not an error. Lines that do not parse as a full
// User/AI pair are dropped.
func (s *FileStore) LoadTurns(sessionID string) ([]quarry.Turn, error) {
	data, err := os.ReadFile(s.path(sessionID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: read transcript: %w", err)
	}

	var turns []quarry.Turn
	for _, block := range strings.Split(string(data), separator+"\n") {
		lines := strings.Split(strings.TrimRight(block, "\n"), "\n")
		var turn quarry.Turn
		var haveQuery, haveResponse bool
		for _, line := range lines {
			switch {
			case strings.HasPrefix(line, "User: "):
				turn.Query = unsanitizeLine(strings.TrimPrefix(line, "User: "))
				haveQuery = true
			case strings.HasPrefix(line, "AI: "):
				turn.Response = unsanitizeLine(strings.TrimPrefix(line, "AI: "))
				haveResponse = true
			}
		}
		if haveQuery && haveResponse {
			turns = append(turns, turn)
		}
	}
	return turns, nil
}

// Reset deletes the session transcript. Deleting a transcript that never
// existed is not an error.
func (s *FileStore) Reset(sessionID string) error {
	err := os.Remove(s.path(sessionID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("history: reset transcript: %w", err)
	}
	return nil
}

// sanitizeLine keeps one turn on one transcript line: newlines inside a
// query or response are escaped so the separator framing stays parseable.
func sanitizeLine(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	return strings.ReplaceAll(s, "\n", "\\n")
}

func unsanitizeLine(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				b.WriteByte('\n')
				i++
				continue
			case '\\':
				b.WriteByte('\\')
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
