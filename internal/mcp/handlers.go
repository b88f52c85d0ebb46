package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mike-a-ellis/navindex/internal/index"
)

// makeSearchHandler creates the search_index tool handler. Search failures are
// reported in the output metadata, not as tool errors.
func makeSearchHandler(idx Index) func(
	context.Context, *mcp.CallToolRequest, SearchIndexInput,
) (*mcp.CallToolResult, SearchIndexOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchIndexInput) (
		*mcp.CallToolResult, SearchIndexOutput, error,
	) {
		resp := idx.Search(ctx, input.Query, input.Limit, input.Filter)

		out := SearchIndexOutput{
			Code:     resp.Code,
			Docs:     resp.Docs,
			Metadata: resp.Metadata,
		}
		switch {
		case resp.Metadata.Error != "":
			out.Message = "Search failed: " + resp.Metadata.Error
		case len(resp.Code) == 0 && len(resp.Docs) == 0:
			out.Message = "No matching entries found. Try broader search terms or index the sources first."
		}
		return nil, out, nil
	}
}

// makeIndexCodeHandler creates the index_code tool handler.
func makeIndexCodeHandler(idx Index) func(
	context.Context, *mcp.CallToolRequest, IndexCodeInput,
) (*mcp.CallToolResult, IndexOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IndexCodeInput) (
		*mcp.CallToolResult, IndexOutput, error,
	) {
		result, err := idx.IndexCodeEntries(ctx)
		if err != nil {
			return nil, IndexOutput{}, fmt.Errorf("index_error: %w", err)
		}
		return nil, indexOutput(result), nil
	}
}

// makeIndexDocsHandler creates the index_docs tool handler.
func makeIndexDocsHandler(idx Index) func(
	context.Context, *mcp.CallToolRequest, IndexDocsInput,
) (*mcp.CallToolResult, IndexOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IndexDocsInput) (
		*mcp.CallToolResult, IndexOutput, error,
	) {
		result, err := idx.IndexWSPEntries(ctx, input.Paths...)
		if err != nil {
			return nil, IndexOutput{}, fmt.Errorf("index_error: %w", err)
		}
		return nil, indexOutput(result), nil
	}
}

func indexOutput(result *index.BuildResult) IndexOutput {
	out := IndexOutput{
		Collection: result.Collection,
		Entries:    result.Entries,
		Skipped:    make([]SkippedFile, len(result.Skipped)), // Ensure non-nil for JSON marshaling
		Duration:   result.Duration.Round(time.Millisecond).String(),
	}
	for i, s := range result.Skipped {
		out.Skipped[i] = SkippedFile{Path: s.Path, Reason: s.Reason}
	}
	if result.Entries == 0 {
		out.Message = "Nothing to index; the previous collection was kept."
	}
	return out
}

// makeStatusHandler creates the get_index_status tool handler.
func makeStatusHandler(idx Index) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		status, err := idx.Status(ctx)
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("store_error: %w", err)
		}
		return nil, StatusOutput{
			Collections:         status.Collections,
			SummaryCacheEntries: status.SummaryCacheEntries,
			CheckedAt:           formatTime(time.Now()),
			Warning:             status.Error,
		}, nil
	}
}
