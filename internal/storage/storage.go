// Package storage holds per-document review state between tool calls.
// Sessions live in memory only; a server restart clears them.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/Epistemic-Technology/critique-mcp/internal/index"
	"github.com/Epistemic-Technology/critique-mcp/internal/reconcile"
	"github.com/Epistemic-Technology/critique-mcp/models"
)

// ErrSessionNotFound reports an unknown session ID.
var ErrSessionNotFound = errors.New("session not found")

// Session is the state of one processed document: extracted pages, the
// built index, and the latest critique with its reconciled marks.
// Sessions are treated as immutable values; callers update one by
// putting a modified copy back into the store.
type Session struct {
	ID         string
	Pages      []models.Page
	ChunkCount int
	Index      *index.Index
	Critique   *models.Critique
	Reports    []reconcile.MatchReport
	Marks      []models.Mark
	CreatedAt  time.Time
}

// SessionInfo is the listing view of a session.
type SessionInfo struct {
	ID          string    `json:"id"`
	PageCount   int       `json:"page_count"`
	ChunkCount  int       `json:"chunk_count"`
	HasCritique bool      `json:"has_critique"`
	MarkCount   int       `json:"mark_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store defines the interface for keeping and retrieving sessions.
type Store interface {
	// PutSession inserts or replaces a session.
	PutSession(ctx context.Context, s *Session) error

	// GetSession retrieves a session by ID.
	GetSession(ctx context.Context, id string) (*Session, error)

	// DeleteSession removes a session. Deleting an unknown ID is a no-op.
	DeleteSession(ctx context.Context, id string) error

	// ListSessions returns listing info for every session, oldest first.
	ListSessions(ctx context.Context) ([]SessionInfo, error)

	// Close releases any store resources.
	Close() error
}

// SessionID derives the stable identifier for a document: the hex
// sha256 of its bytes truncated to 16 characters, so re-uploading an
// identical document lands in the same session.
func SessionID(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}

// Info renders the listing view of a session.
func (s *Session) Info() SessionInfo {
	return SessionInfo{
		ID:          s.ID,
		PageCount:   len(s.Pages),
		ChunkCount:  s.ChunkCount,
		HasCritique: s.Critique != nil,
		MarkCount:   len(s.Marks),
		CreatedAt:   s.CreatedAt,
	}
}
