package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/critique-mcp/internal/critique"
	"github.com/Epistemic-Technology/critique-mcp/internal/logger"
	"github.com/Epistemic-Technology/critique-mcp/models"
)

type ReviewModesQuery struct{}

type ReviewModeInfo struct {
	Mode             string `json:"mode"`
	Description      string `json:"description"`
	DefaultQuery     string `json:"default_query,omitempty"`
	RequiresQuestion bool   `json:"requires_question,omitempty"`
}

type ReviewModesResponse struct {
	Modes []ReviewModeInfo `json:"modes"`
}

var modeDescriptions = map[models.ReviewMode]string{
	models.ModeFullReview:       "Complete review covering methodology, writing, citations, and structure, with issues classified by severity.",
	models.ModeMethodology:      "Research design, variable definitions, sampling, data collection, and analysis alignment.",
	models.ModeWritingQuality:   "Grammar, clarity, structure, and academic style, with concrete rewrite suggestions.",
	models.ModeCitationCheck:    "In-text citation format, reference list consistency, missing citations, and source currency.",
	models.ModeConsistencyCheck: "Terminology, acronym, tense, number format, and spelling consistency across the document.",
	models.ModeAlignmentCheck:   "Alignment between research problem, questions, variables, methodology, analysis, and conclusions.",
	models.ModeCustom:           "Answer a specific question about the document. Requires a question, which also drives retrieval.",
}

func ReviewModesTool() *mcp.Tool {
	inputschema, err := jsonschema.For[ReviewModesQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "review-modes",
		Description: "List the available review modes for document-critique, with a description and the default retrieval query of each.",
		InputSchema: inputschema,
	}
}

func ReviewModesToolHandler(ctx context.Context, req *mcp.CallToolRequest, query ReviewModesQuery, log logger.Logger) (*mcp.CallToolResult, *ReviewModesResponse, error) {
	log.Debug("review-modes tool called")

	modes := models.ReviewModes()
	infos := make([]ReviewModeInfo, len(modes))
	for i, mode := range modes {
		infos[i] = ReviewModeInfo{
			Mode:             string(mode),
			Description:      modeDescriptions[mode],
			DefaultQuery:     critique.DefaultQuery(mode),
			RequiresQuestion: mode == models.ModeCustom,
		}
	}

	return nil, &ReviewModesResponse{Modes: infos}, nil
}
