package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kpant2190/Opportender-Backend/internal/store"
	"github.com/kpant2190/Opportender-Backend/pkg/models"
)

// Config holds MCP server configuration.
type Config struct {
	Name        string
	Version     string
	ESAddresses []string
	ESIndex     string
	ESUsername  string
	ESPassword  string
}

// Server exposes the tender index to MCP clients over stdio.
type Server struct {
	mcpServer *server.MCPServer
	esClient  *store.Client
}

// NewServer creates an MCP server with tender search tools.
func NewServer(config Config) (*Server, error) {
	esClient, err := store.New(store.Config{
		Addresses: config.ESAddresses,
		Index:     config.ESIndex,
		Username:  config.ESUsername,
		Password:  config.ESPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	mcpServer := server.NewMCPServer(
		config.Name,
		config.Version,
		server.WithToolCapabilities(true),
	)

	s := &Server{
		mcpServer: mcpServer,
		esClient:  esClient,
	}

	searchTool := mcp.NewTool("search_tenders",
		mcp.WithDescription("Search ingested government tenders by query across title, description, buyer, and category."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query string"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results to return (default: 10)"),
		),
	)
	mcpServer.AddTool(searchTool, s.searchHandler)

	getTool := mcp.NewTool("get_tender",
		mcp.WithDescription("Get a specific tender by its content hash"),
		mcp.WithString("hash",
			mcp.Required(),
			mcp.Description("Tender hash to retrieve"),
		),
	)
	mcpServer.AddTool(getTool, s.getTenderHandler)

	return s, nil
}

// searchHandler handles the search_tenders tool call.
func (s *Server) searchHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query parameter is required"), nil
	}

	limit := req.GetInt("limit", 10)

	tenders, err := s.handleSearch(ctx, query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	result, err := json.Marshal(tenders)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}

	return mcp.NewToolResultText(string(result)), nil
}

// getTenderHandler handles the get_tender tool call.
func (s *Server) getTenderHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hash, err := req.RequireString("hash")
	if err != nil {
		return mcp.NewToolResultError("hash parameter is required"), nil
	}

	tender, err := s.handleGetTender(ctx, hash)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get tender failed: %v", err)), nil
	}

	if tender == nil {
		return mcp.NewToolResultError(fmt.Sprintf("tender not found: %s", hash)), nil
	}

	result, err := json.Marshal(tender)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal tender: %v", err)), nil
	}

	return mcp.NewToolResultText(string(result)), nil
}

func (s *Server) handleSearch(ctx context.Context, query string, limit int) ([]models.Tender, error) {
	return s.esClient.Search(ctx, query, limit)
}

func (s *Server) handleGetTender(ctx context.Context, hash string) (*models.Tender, error) {
	return s.esClient.GetTender(ctx, hash)
}

// ServeStdio starts the MCP server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
