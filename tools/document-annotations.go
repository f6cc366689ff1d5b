package tools

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/critique-mcp/internal/logger"
	"github.com/Epistemic-Technology/critique-mcp/internal/operations"
	"github.com/Epistemic-Technology/critique-mcp/internal/reconcile"
	"github.com/Epistemic-Technology/critique-mcp/models"
)

type DocumentAnnotationsQuery struct {
	SessionID string `json:"session_id"`
	Page      int    `json:"page,omitempty"`
}

type DocumentAnnotationsResponse struct {
	SessionID    string                  `json:"session_id"`
	Marks        []models.Mark           `json:"marks"`
	MatchReports []reconcile.MatchReport `json:"match_reports,omitempty"`
	TotalMarks   int                     `json:"total_marks"`
}

func DocumentAnnotationsTool() *mcp.Tool {
	inputschema, err := jsonschema.For[DocumentAnnotationsQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "document-annotations",
		Description: "Return the page annotations produced from the session's last critique: one highlight box per matched text span, colored by severity, with the finding's note on the first mark of each group. Set page to restrict the marks to a single page; total_marks always counts the whole document.",
		InputSchema: inputschema,
	}
}

func DocumentAnnotationsToolHandler(ctx context.Context, req *mcp.CallToolRequest, query DocumentAnnotationsQuery, deps operations.Deps, log logger.Logger) (*mcp.CallToolResult, *DocumentAnnotationsResponse, error) {
	log.Info("document-annotations tool called for session %s", query.SessionID)

	session, err := deps.Store.GetSession(ctx, query.SessionID)
	if err != nil {
		log.Error("document-annotations tool failed: %v", err)
		return nil, nil, err
	}
	if session.Critique == nil {
		return nil, nil, fmt.Errorf("%w: %s", operations.ErrNoCritique, query.SessionID)
	}

	// Reconcile on demand when the critique has findings that were never
	// matched against the pages.
	if len(session.Reports) == 0 && len(session.Critique.Findings) > 0 {
		if _, err := operations.Annotate(ctx, deps, query.SessionID); err != nil {
			return nil, nil, err
		}
		session, err = deps.Store.GetSession(ctx, query.SessionID)
		if err != nil {
			return nil, nil, err
		}
	}

	marks := session.Marks
	if query.Page > 0 {
		filtered := make([]models.Mark, 0, len(marks))
		for _, m := range marks {
			if m.PageNumber == query.Page {
				filtered = append(filtered, m)
			}
		}
		marks = filtered
	}

	responseData := &DocumentAnnotationsResponse{
		SessionID:    query.SessionID,
		Marks:        marks,
		MatchReports: session.Reports,
		TotalMarks:   len(session.Marks),
	}

	return nil, responseData, nil
}
