package main

import (
	"context"

	"github.com/Epistemic-Technology/critique-mcp/internal/logger"
	"github.com/Epistemic-Technology/critique-mcp/server"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	// Initialize logger with default configuration
	log, err := logger.NewLogger(logger.LogConfig{})
	if err != nil {
		// Fall back to stderr if logger initialization fails
		panic(err)
	}

	log.Info("Starting critique-mcp server")

	srv, err := server.CreateServer(log)
	if err != nil {
		log.Fatal("Failed to create server: %v", err)
	}

	err = srv.Run(context.Background(), &mcp.StdioTransport{})
	if err != nil {
		log.Fatal("Server failed: %v", err)
	}
}
