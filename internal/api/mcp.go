package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/contractd/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store *storage.Store
}

// NewMCPServer creates an MCP server with all contractd tools and resources
// registered.
func NewMCPServer(deps MCPDeps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"contractd",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("contractd extracts parties, signatories, payment and renewal terms from uploaded contract PDFs."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("contract_status",
			mcp.WithDescription("Report the processing status and progress of an uploaded contract."),
			mcp.WithString("contract_id", mcp.Description("Contract ID returned by upload"), mcp.Required()),
		),
		mcpContractStatus(deps),
	)

	s.AddTool(
		mcp.NewTool("contract_data",
			mcp.WithDescription("Return the extracted data and identified gaps of a completed contract."),
			mcp.WithString("contract_id", mcp.Description("Contract ID returned by upload"), mcp.Required()),
		),
		mcpContractData(deps),
	)

	s.AddTool(
		mcp.NewTool("list_contracts",
			mcp.WithDescription("List uploaded contracts, newest first, optionally filtered by search text or status."),
			mcp.WithString("q", mcp.Description("Words that must all appear in the file name or party names")),
			mcp.WithString("status", mcp.Description("processing, completed or error")),
			mcp.WithNumber("page", mcp.Description("Page number starting at 1 (default 1)")),
			mcp.WithNumber("size", mcp.Description("Page size 1-100 (default 10)")),
		),
		mcpListContracts(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"contracts://recent",
			"Recent Contracts",
			mcp.WithResourceDescription("Last 10 uploaded contracts with their status"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpGetContract(deps MCPDeps, req mcp.CallToolRequest) (storage.Contract, *mcp.CallToolResult) {
	id, err := req.RequireString("contract_id")
	if err != nil {
		return storage.Contract{}, mcpError("contract_id is required")
	}
	c, err := deps.Store.GetContract(id)
	if errors.Is(err, storage.ErrNotFound) {
		return c, mcpError(fmt.Sprintf("contract %s not found", id))
	}
	if err != nil {
		return c, mcpError(fmt.Sprintf("failed to get contract: %v", err))
	}
	return c, nil
}

func mcpContractStatus(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		c, errResult := mcpGetContract(deps, req)
		if errResult != nil {
			return errResult, nil
		}
		return mcpJSON(newStatusResponse(c))
	}
}

func mcpContractData(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		c, errResult := mcpGetContract(deps, req)
		if errResult != nil {
			return errResult, nil
		}
		switch c.Status {
		case storage.StatusCompleted:
		case storage.StatusError:
			return mcpError("Processing failed for this contract. Error: " + c.ErrorMessage), nil
		default:
			return mcpError(fmt.Sprintf("Contract is still being processed (%d%%: %s).", c.Progress, c.ProgressMessage)), nil
		}

		gaps := c.IdentifiedGaps
		if gaps == nil {
			gaps = []string{}
		}
		return mcpJSON(ContractDataResponse{
			ContractID:      c.ID,
			FileName:        c.FileName,
			Status:          c.Status,
			ExtractedData:   c.ExtractedData,
			IdentifiedGaps:  gaps,
			UploadTimestamp: c.UploadedAt,
		})
	}
}

func mcpListContracts(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		size := req.GetInt("size", 10)
		if size <= 0 {
			size = 10
		}
		if size > 100 {
			size = 100
		}
		page := max(req.GetInt("page", 1), 1)

		res, err := deps.Store.ListContracts(storage.ContractQuery{
			Page:     page,
			Size:     size,
			Search:   strings.Fields(req.GetString("q", "")),
			Status:   req.GetString("status", ""),
			SortBy:   storage.SortUploadedAt,
			SortDesc: true,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("list failed: %v", err)), nil
		}

		resp := ContractListResponse{TotalItems: res.Total, Page: res.Page, Size: res.Size, Items: make([]ContractSummary, len(res.Items))}
		for i, c := range res.Items {
			resp.Items[i] = ContractSummary{
				ContractID:      c.ID,
				FileName:        c.FileName,
				UploadTimestamp: c.UploadedAt,
				Status:          c.Status,
				GapsCount:       c.GapsCount,
				FileSize:        c.FileSize,
			}
		}
		return mcpJSON(resp)
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		res, err := deps.Store.ListContracts(storage.ContractQuery{Page: 1, Size: 10, SortBy: storage.SortUploadedAt, SortDesc: true})
		if err != nil {
			return nil, fmt.Errorf("failed to list recent contracts: %w", err)
		}

		type contractSummary struct {
			ID         string `json:"contract_id"`
			FileName   string `json:"file_name"`
			UploadedAt string `json:"upload_timestamp"`
			Status     string `json:"processing_status"`
			GapsCount  int    `json:"gaps_count"`
		}

		summaries := make([]contractSummary, len(res.Items))
		for i, c := range res.Items {
			summaries[i] = contractSummary{
				ID:         c.ID,
				FileName:   c.FileName,
				UploadedAt: c.UploadedAt.Format(time.RFC3339),
				Status:     c.Status,
				GapsCount:  c.GapsCount,
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal contracts: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
