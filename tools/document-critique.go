package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/critique-mcp/internal/logger"
	"github.com/Epistemic-Technology/critique-mcp/internal/operations"
	"github.com/Epistemic-Technology/critique-mcp/internal/reconcile"
	"github.com/Epistemic-Technology/critique-mcp/internal/storage"
	"github.com/Epistemic-Technology/critique-mcp/models"
)

type DocumentCritiqueQuery struct {
	SessionID string `json:"session_id"`
	Mode      string `json:"mode,omitempty"`
	Question  string `json:"question,omitempty"`
}

type DocumentCritiqueResponse struct {
	SessionID     string                     `json:"session_id"`
	Mode          string                     `json:"mode"`
	Critique      string                     `json:"critique"`
	Findings      []models.Finding           `json:"findings,omitempty"`
	Rewrites      []models.RewriteSuggestion `json:"rewrites,omitempty"`
	MatchReports  []reconcile.MatchReport    `json:"match_reports,omitempty"`
	MarkCount     int                        `json:"mark_count"`
	ResourcePaths []string                   `json:"resource_paths"`
}

func DocumentCritiqueTool() *mcp.Tool {
	inputschema, err := jsonschema.For[DocumentCritiqueQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "document-critique",
		Description: "Generate a critique of a processed document. Mode selects the review perspective (full_review, methodology, writing_quality, citation_check, consistency_check, alignment_check, or custom; default full_review). A question is required for custom mode and otherwise overrides the retrieval query. Findings are anchored back to page positions; use document-annotations to fetch the resulting marks.",
		InputSchema: inputschema,
	}
}

func DocumentCritiqueToolHandler(ctx context.Context, req *mcp.CallToolRequest, query DocumentCritiqueQuery, deps operations.Deps, log logger.Logger) (*mcp.CallToolResult, *DocumentCritiqueResponse, error) {
	log.Info("document-critique tool called for session %s", query.SessionID)

	mode := models.ReviewMode(query.Mode)
	if query.Mode == "" {
		mode = models.ModeFullReview
	}

	stream, err := operations.Answer(ctx, deps, query.SessionID, mode, query.Question)
	if err != nil {
		log.Error("document-critique tool failed: %v", err)
		return nil, nil, err
	}

	// The MCP response is a single message, so the stream is drained
	// here rather than relayed token by token.
	crit, err := stream.Critique()
	if err != nil {
		log.Error("document-critique generation failed: %v", err)
		return nil, nil, err
	}

	if err := operations.SaveCritique(ctx, deps, query.SessionID, crit); err != nil {
		return nil, nil, err
	}

	result, err := operations.Annotate(ctx, deps, query.SessionID)
	if err != nil {
		return nil, nil, err
	}

	session, err := deps.Store.GetSession(ctx, query.SessionID)
	if err != nil {
		return nil, nil, err
	}

	responseData := &DocumentCritiqueResponse{
		SessionID:     query.SessionID,
		Mode:          string(mode),
		Critique:      crit.Text,
		Findings:      crit.Findings,
		Rewrites:      crit.Rewrites,
		MatchReports:  result.Reports,
		MarkCount:     len(result.Marks),
		ResourcePaths: storage.SessionResourcePaths(session),
	}

	return nil, responseData, nil
}
