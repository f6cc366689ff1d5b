package server

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/critique-mcp/internal/config"
	"github.com/Epistemic-Technology/critique-mcp/internal/critique"
	"github.com/Epistemic-Technology/critique-mcp/internal/ingest"
	"github.com/Epistemic-Technology/critique-mcp/internal/llm"
	"github.com/Epistemic-Technology/critique-mcp/internal/logger"
	"github.com/Epistemic-Technology/critique-mcp/internal/operations"
	"github.com/Epistemic-Technology/critique-mcp/internal/reconcile"
	"github.com/Epistemic-Technology/critique-mcp/internal/storage"
	"github.com/Epistemic-Technology/critique-mcp/resources"
	"github.com/Epistemic-Technology/critique-mcp/tools"
)

const verifyTimeout = 10 * time.Second

// CreateServer builds the MCP server: it loads configuration,
// constructs the review pipeline, and registers the tools and resource
// templates. A failing API self-test is logged but does not prevent
// startup.
func CreateServer(log logger.Logger) (*mcp.Server, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	client, err := llm.NewClient(llm.Options{
		APIKey:          cfg.OpenAIAPIKey,
		EmbeddingModel:  cfg.EmbeddingModel,
		CompletionModel: cfg.CompletionModel,
		Temperature:     cfg.Temperature,
		MaxTokens:       cfg.MaxTokens,
		EmbedBatchSize:  cfg.EmbedBatchSize,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	// Warn-only startup self-test so credential problems show up in the
	// log before the first tool call.
	verifyCtx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	if err := client.Verify(verifyCtx); err != nil {
		log.Warn("API self-test failed, reviews may not work: %v", err)
	}
	cancel()

	completer := critique.CompleterFunc(func(ctx context.Context, system, user string) (critique.TokenSource, error) {
		return client.Complete(ctx, system, user)
	})

	deps := operations.Deps{
		Config:     cfg,
		Store:      storage.NewMemoryStore(cfg.MaxSessions),
		Extractor:  ingest.NewExtractor(cfg.MaxUploadBytes, cfg.MaxPages, log),
		Embedder:   client,
		Generator:  critique.NewGenerator(completer, log),
		Reconciler: reconcile.NewReconciler(cfg.MatchThreshold, log),
		Cooldown:   llm.NewCooldown(time.Duration(cfg.Cooldown)),
		Log:        log,
	}

	server := mcp.NewServer(&mcp.Implementation{Name: "critique-mcp", Version: "v0.0.1"}, nil)

	sessionResourceHandler := resources.NewSessionResourceHandler(deps.Store)

	// Register tools with pipeline and logger dependencies
	mcp.AddTool(server, tools.DocumentProcessTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.DocumentProcessQuery) (*mcp.CallToolResult, *tools.DocumentProcessResponse, error) {
		return tools.DocumentProcessToolHandler(ctx, req, query, deps, log)
	})

	mcp.AddTool(server, tools.DocumentCritiqueTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.DocumentCritiqueQuery) (*mcp.CallToolResult, *tools.DocumentCritiqueResponse, error) {
		return tools.DocumentCritiqueToolHandler(ctx, req, query, deps, log)
	})

	mcp.AddTool(server, tools.DocumentAnnotationsTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.DocumentAnnotationsQuery) (*mcp.CallToolResult, *tools.DocumentAnnotationsResponse, error) {
		return tools.DocumentAnnotationsToolHandler(ctx, req, query, deps, log)
	})

	mcp.AddTool(server, tools.ReviewModesTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.ReviewModesQuery) (*mcp.CallToolResult, *tools.ReviewModesResponse, error) {
		return tools.ReviewModesToolHandler(ctx, req, query, log)
	})

	// Template for session summary
	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "session://{sessionId}",
		Name:        "review-session",
		Description: "Session summary with page, chunk, critique, and mark counts",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return sessionResourceHandler.ReadResource(ctx, req.Params.URI)
	})

	// Template for the rendered report
	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "session://{sessionId}/report",
		Name:        "review-report",
		Description: "Markdown review report: document stats, critique, findings table, and mark counts",
		MIMEType:    "text/markdown",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return sessionResourceHandler.ReadResource(ctx, req.Params.URI)
	})

	// Template for the critique text and sections
	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "session://{sessionId}/critique",
		Name:        "review-critique",
		Description: "Generated critique text with its heading-delimited sections",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return sessionResourceHandler.ReadResource(ctx, req.Params.URI)
	})

	// Template for parsed findings
	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "session://{sessionId}/findings",
		Name:        "review-findings",
		Description: "Structured findings and rewrite suggestions parsed from the critique",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return sessionResourceHandler.ReadResource(ctx, req.Params.URI)
	})

	// Template for page marks
	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "session://{sessionId}/marks",
		Name:        "review-marks",
		Description: "Page annotations derived from the critique findings, with match reports",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return sessionResourceHandler.ReadResource(ctx, req.Params.URI)
	})

	return server, nil
}
