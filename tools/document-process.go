package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/critique-mcp/internal/ingest"
	"github.com/Epistemic-Technology/critique-mcp/internal/logger"
	"github.com/Epistemic-Technology/critique-mcp/internal/operations"
	"github.com/Epistemic-Technology/critique-mcp/internal/storage"
)

type DocumentProcessQuery struct {
	FilePath string `json:"file_path,omitempty"`
	Data     string `json:"data,omitempty"`
}

type DocumentProcessResponse struct {
	SessionID     string   `json:"session_id"`
	PageCount     int      `json:"page_count"`
	ChunkCount    int      `json:"chunk_count"`
	ResourcePaths []string `json:"resource_paths"`
}

func DocumentProcessTool() *mcp.Tool {
	inputschema, err := jsonschema.For[DocumentProcessQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "document-process",
		Description: "Process a PDF document for review: validate it, extract page text with positions, and build the retrieval index. Supply either a file path readable by the server or the document bytes as base64 data. Returns a session ID used by the other review tools; re-uploading an identical document returns its existing session.",
		InputSchema: inputschema,
	}
}

func DocumentProcessToolHandler(ctx context.Context, req *mcp.CallToolRequest, query DocumentProcessQuery, deps operations.Deps, log logger.Logger) (*mcp.CallToolResult, *DocumentProcessResponse, error) {
	log.Info("document-process tool called")

	data, err := ingest.ReadSource(query.FilePath, query.Data)
	if err != nil {
		log.Error("document-process tool failed: %v", err)
		return nil, nil, err
	}

	session, err := operations.ProcessDocument(ctx, deps, data)
	if err != nil {
		log.Error("document-process tool failed: %v", err)
		return nil, nil, err
	}

	responseData := &DocumentProcessResponse{
		SessionID:     session.ID,
		PageCount:     len(session.Pages),
		ChunkCount:    session.ChunkCount,
		ResourcePaths: storage.SessionResourcePaths(session),
	}

	return nil, responseData, nil
}
