// Package operations implements the review pipeline behind the MCP
// tools: turning uploaded documents into indexed sessions, generating
// critiques over retrieved context, and reconciling critique findings
// into page annotations. Tool handlers stay thin; logic shared between
// them lives here.
package operations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Epistemic-Technology/critique-mcp/internal/chunker"
	"github.com/Epistemic-Technology/critique-mcp/internal/config"
	"github.com/Epistemic-Technology/critique-mcp/internal/critique"
	"github.com/Epistemic-Technology/critique-mcp/internal/index"
	"github.com/Epistemic-Technology/critique-mcp/internal/llm"
	"github.com/Epistemic-Technology/critique-mcp/internal/logger"
	"github.com/Epistemic-Technology/critique-mcp/internal/reconcile"
	"github.com/Epistemic-Technology/critique-mcp/internal/storage"
	"github.com/Epistemic-Technology/critique-mcp/models"
)

// ErrNoCritique is returned when annotation is requested for a session
// that has not produced a critique yet.
var ErrNoCritique = errors.New("session has no critique")

// Extractor supplies pages from a raw uploaded document.
type Extractor interface {
	Extract(ctx context.Context, data []byte) ([]models.Page, error)
}

// Deps bundles the long-lived collaborators the operations share. The
// server constructs one Deps at startup and hands it to every tool
// handler.
type Deps struct {
	Config     *config.Config
	Store      storage.Store
	Extractor  Extractor
	Embedder   index.Embedder
	Generator  *critique.Generator
	Reconciler *reconcile.Reconciler
	Cooldown   *llm.Cooldown
	Log        logger.Logger
}

func (d Deps) logger() logger.Logger {
	if d.Log == nil {
		return logger.NewNoOpLogger()
	}
	return d.Log
}

// ProcessDocument runs the ingestion pipeline on a raw document and
// stores the result as a session: validate and extract pages, chunk
// the page text, embed the chunks into a fresh index. Session IDs are
// derived from the document bytes, so re-uploading an identical
// document returns its existing session without re-extracting.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - deps: Shared collaborators (store, extractor, embedder, config)
//   - data: Raw document bytes as uploaded
//
// Returns:
//   - session: The stored session holding pages, chunk count, and index
//   - error: Any ceiling violation, extraction, or embedding failure
func ProcessDocument(ctx context.Context, deps Deps, data []byte) (*storage.Session, error) {
	log := deps.logger()

	id := storage.SessionID(data)
	if existing, err := deps.Store.GetSession(ctx, id); err == nil {
		log.Info("Reusing session %s for previously processed document", id)
		return existing, nil
	}

	pages, err := deps.Extractor.Extract(ctx, data)
	if err != nil {
		return nil, err
	}

	cfg := chunker.Config{Size: deps.Config.ChunkSize, Overlap: deps.Config.ChunkOverlap}
	chunks, err := chunker.Chunk(pages, cfg)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("document has no extractable text")
	}

	ix, err := index.Build(ctx, deps.Embedder, chunks, log)
	if err != nil {
		return nil, err
	}

	session := &storage.Session{
		ID:         id,
		Pages:      pages,
		ChunkCount: len(chunks),
		Index:      ix,
		CreatedAt:  time.Now(),
	}
	if err := deps.Store.PutSession(ctx, session); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}

	log.Info("Processed document into session %s: %d pages, %d chunks", id, len(pages), len(chunks))
	return session, nil
}

// Answer starts a critique generation request against a stored
// session: retrieve the chunks most relevant to the question (or the
// mode's default query when none is given), then stream a completion
// over them. The cooldown slot is consumed after validation and
// session lookup succeed, and always before the retrieval embedding
// call, so a rejected request costs no API traffic.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - deps: Shared collaborators (store, embedder, generator, cooldown)
//   - sessionID: Session to review, from a prior ProcessDocument
//   - mode: Review perspective; fixes the prompt template
//   - question: Required for custom mode, otherwise an optional
//     retrieval query override
//
// Returns:
//   - stream: The live token stream; the caller drains it and calls
//     Critique for the parsed result
//   - error: Validation, lookup, cooldown, or retrieval failure
func Answer(ctx context.Context, deps Deps, sessionID string, mode models.ReviewMode, question string) (*critique.Stream, error) {
	log := deps.logger()

	if !models.ValidReviewMode(string(mode)) {
		return nil, fmt.Errorf("%w: unknown review mode %q", index.ErrInvalidQuery, mode)
	}
	question = strings.TrimSpace(question)
	if mode == models.ModeCustom && question == "" {
		return nil, fmt.Errorf("%w: custom review mode requires a question", index.ErrInvalidQuery)
	}

	session, err := deps.Store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := deps.Cooldown.Check(); err != nil {
		return nil, err
	}

	query := question
	if query == "" {
		query = critique.DefaultQuery(mode)
	}

	retrieved, err := index.Retrieve(ctx, session.Index, query, deps.Config.TopK)
	if err != nil {
		return nil, err
	}

	log.Debug("Answering %s review for session %s from %d retrieved passages", mode, sessionID, len(retrieved.Chunks))
	return deps.Generator.Generate(ctx, mode, retrieved, question)
}

// SaveCritique records a drained stream's parsed critique on its
// session. Marks left by a previous critique are cleared; the next
// Annotate call reconciles the new findings.
func SaveCritique(ctx context.Context, deps Deps, sessionID string, crit *models.Critique) error {
	session, err := deps.Store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	session.Critique = crit
	session.Marks = nil
	session.Reports = nil
	if err := deps.Store.PutSession(ctx, session); err != nil {
		return fmt.Errorf("storing critique: %w", err)
	}
	return nil
}

// Annotate reconciles the session's critique findings against its
// pages and replaces the session's marks with the result. Findings
// that match no page text are reported in the result, never raised as
// errors.
func Annotate(ctx context.Context, deps Deps, sessionID string) (*reconcile.Result, error) {
	log := deps.logger()

	session, err := deps.Store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Critique == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoCritique, sessionID)
	}

	result, err := deps.Reconciler.Reconcile(ctx, session.Critique.Findings, session.Pages)
	if err != nil {
		return nil, err
	}

	session.Marks = result.Marks
	session.Reports = result.Reports
	if err := deps.Store.PutSession(ctx, session); err != nil {
		return nil, fmt.Errorf("storing annotations: %w", err)
	}

	log.Info("Annotated session %s: %d of %d findings matched, %d marks",
		sessionID, result.MatchedCount(), len(result.Reports), len(result.Marks))
	return result, nil
}
