package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/critique-mcp/internal/operations"
	"github.com/Epistemic-Technology/critique-mcp/internal/report"
	"github.com/Epistemic-Technology/critique-mcp/internal/storage"
)

// SessionResourceHandler serves review session state over session://
// URIs: the rendered report, the critique with its sections, the
// parsed findings, and the page marks.
type SessionResourceHandler struct {
	store storage.Store
}

// NewSessionResourceHandler creates a resource handler backed by the
// given session store.
func NewSessionResourceHandler(store storage.Store) *SessionResourceHandler {
	return &SessionResourceHandler{store: store}
}

// ListResources returns one resource entry per available view of every
// stored session. Critique and mark views appear only once the session
// has them.
func (h *SessionResourceHandler) ListResources(ctx context.Context) ([]mcp.Resource, error) {
	infos, err := h.store.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	var resources []mcp.Resource
	for _, info := range infos {
		resources = append(resources, mcp.Resource{
			URI:         fmt.Sprintf("session://%s/report", info.ID),
			Name:        fmt.Sprintf("%s (Report)", info.ID),
			Description: "Markdown review report: document stats, critique, findings table, and mark counts",
			MIMEType:    "text/markdown",
		})

		if info.HasCritique {
			resources = append(resources, mcp.Resource{
				URI:         fmt.Sprintf("session://%s/critique", info.ID),
				Name:        fmt.Sprintf("%s (Critique)", info.ID),
				Description: "Generated critique text with its heading-delimited sections",
				MIMEType:    "application/json",
			})
			resources = append(resources, mcp.Resource{
				URI:         fmt.Sprintf("session://%s/findings", info.ID),
				Name:        fmt.Sprintf("%s (Findings)", info.ID),
				Description: "Structured findings and rewrite suggestions parsed from the critique",
				MIMEType:    "application/json",
			})
		}

		if info.MarkCount > 0 {
			resources = append(resources, mcp.Resource{
				URI:         fmt.Sprintf("session://%s/marks", info.ID),
				Name:        fmt.Sprintf("%s (Marks)", info.ID),
				Description: "Page annotations derived from the critique findings",
				MIMEType:    "application/json",
			})
		}
	}

	return resources, nil
}

// ReadResource reads a specific resource by URI. Supported forms are
// session://{sessionID} for a summary and session://{sessionID}/{view}
// for report, critique, findings, or marks.
func (h *SessionResourceHandler) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	if !strings.HasPrefix(uri, "session://") {
		return nil, fmt.Errorf("invalid URI scheme, expected session://")
	}

	path := strings.TrimPrefix(uri, "session://")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		return nil, fmt.Errorf("invalid URI, missing session ID")
	}

	sessionID := parts[0]
	view := ""
	if len(parts) > 1 {
		view = parts[1]
	}

	session, err := h.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var content, mimeType string
	switch view {
	case "":
		content, err = h.getSummary(session)
		mimeType = "application/json"
	case "report":
		content = report.Render(session)
		mimeType = "text/markdown"
	case "critique":
		content, err = h.getCritique(session)
		mimeType = "application/json"
	case "findings":
		content, err = h.getFindings(session)
		mimeType = "application/json"
	case "marks":
		content, err = h.getMarks(session)
		mimeType = "application/json"
	default:
		return nil, fmt.Errorf("unknown resource view: %s", view)
	}
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: mimeType,
				Text:     content,
			},
		},
	}, nil
}

func (h *SessionResourceHandler) getSummary(s *storage.Session) (string, error) {
	summary := map[string]interface{}{
		"session":             s.Info(),
		"available_resources": storage.SessionResourcePaths(s),
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling session summary: %w", err)
	}
	return string(data), nil
}

func (h *SessionResourceHandler) getCritique(s *storage.Session) (string, error) {
	if s.Critique == nil {
		return "", fmt.Errorf("%w: %s", operations.ErrNoCritique, s.ID)
	}

	result := map[string]interface{}{
		"mode":     s.Critique.Mode,
		"text":     s.Critique.Text,
		"sections": report.Sections(s.Critique.Text),
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling critique: %w", err)
	}
	return string(data), nil
}

func (h *SessionResourceHandler) getFindings(s *storage.Session) (string, error) {
	if s.Critique == nil {
		return "", fmt.Errorf("%w: %s", operations.ErrNoCritique, s.ID)
	}

	result := map[string]interface{}{
		"finding_count": len(s.Critique.Findings),
		"findings":      s.Critique.Findings,
		"rewrites":      s.Critique.Rewrites,
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling findings: %w", err)
	}
	return string(data), nil
}

func (h *SessionResourceHandler) getMarks(s *storage.Session) (string, error) {
	result := map[string]interface{}{
		"mark_count":    len(s.Marks),
		"marks":         s.Marks,
		"match_reports": s.Reports,
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling marks: %w", err)
	}
	return string(data), nil
}
