package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterTools exposes the bid-search tools on srv. Domain failures render
// as ❌/📭 text so the calling agent can read them; the result error channel
// is reserved for arguments that do not decode at all.
func RegisterTools(srv *mcp.Server, a *App) {
	a.registerSearchTool(srv)
	a.registerRecommendTool(srv)
	a.registerAnalyzeTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- get_bids_by_keyword ---

type searchArgs struct {
	Keyword string `json:"keyword"`
}

func (a *App) registerSearchTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name: "get_bids_by_keyword",
		Description: "Search Korean government procurement notices by keyword. " +
			"Returns open service-sector bid notices and preliminary specifications in separate sections.",
		InputSchema: inputSchema(map[string]any{
			"keyword": map[string]any{"type": "string", "description": "Search term for bid title / pre-spec title, e.g. 'AI', '플랫폼'"},
		}, []string{"keyword"}),
	}
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args searchArgs
		if res := decodeArgs(req, &args); res != nil {
			return res, nil
		}
		if strings.TrimSpace(args.Keyword) == "" {
			return textResult("❌ Error: 'keyword' parameter is required"), nil
		}
		return textResult(a.SearchByKeyword(ctx, args.Keyword)), nil
	})
}

// --- recommend_bids_for_dept ---

type recommendArgs struct {
	Keyword string `json:"keyword"`
	Profile string `json:"department_profile"`
	TopN    int    `json:"top_n"`
}

func (a *App) registerRecommendTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name: "recommend_bids_for_dept",
		Description: "Search procurement notices and rank every open item against a department profile. " +
			"Returns scored recommendations with analysis instructions; items with disclosed budgets rank first on ties.",
		InputSchema: inputSchema(map[string]any{
			"keyword":            map[string]any{"type": "string", "description": "Search keyword (e.g., 'AI', 'Cloud', '플랫폼')"},
			"department_profile": map[string]any{"type": "string", "description": "Description of your team/department, e.g. 'AI/ML 개발팀', '클라우드 인프라팀'"},
			"top_n":              map[string]any{"type": "integer", "description": "Keep only the N best items; 0 or omitted returns all"},
		}, []string{"keyword", "department_profile"}),
	}
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args recommendArgs
		if res := decodeArgs(req, &args); res != nil {
			return res, nil
		}
		if strings.TrimSpace(args.Keyword) == "" {
			return textResult("❌ Error: 'keyword' parameter is required"), nil
		}
		if strings.TrimSpace(args.Profile) == "" {
			return textResult("❌ Error: 'department_profile' parameter is required"), nil
		}
		return textResult(a.RecommendForProfile(ctx, args.Keyword, args.Profile, args.TopN)), nil
	})
}

// --- analyze_bid_detail ---

type analyzeArgs struct {
	FileURL  string `json:"file_url"`
	Filename string `json:"filename"`
	Profile  string `json:"department_profile"`
}

func (a *App) registerAnalyzeTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name: "analyze_bid_detail",
		Description: "Download a bid attachment (RFP/제안요청서) and extract its text for strategic analysis. " +
			"Supports HWP, HWPX, PDF, DOCX, XLSX and ZIP files; ZIP contents are picked by 제안요청서 > 과업지시서 > format priority.",
		InputSchema: inputSchema(map[string]any{
			"file_url":           map[string]any{"type": "string", "description": "Attachment URL (ntceSpecDocUrl1 from search results)"},
			"filename":           map[string]any{"type": "string", "description": "Attachment filename (ntceSpecFileNm1); derived from the response when omitted"},
			"department_profile": map[string]any{"type": "string", "description": "Optional team description for the strategic-analysis prompt"},
		}, []string{"file_url"}),
	}
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args analyzeArgs
		if res := decodeArgs(req, &args); res != nil {
			return res, nil
		}
		if strings.TrimSpace(args.FileURL) == "" {
			return textResult("❌ Error: 'file_url' parameter is required"), nil
		}
		return textResult(a.AnalyzeAttachment(ctx, args.FileURL, args.Filename, args.Profile)), nil
	})
}

// decodeArgs unmarshals the raw tool arguments into dst, returning a
// non-nil error result when they do not decode.
func decodeArgs(req *mcp.CallToolRequest, dst any) *mcp.CallToolResult {
	raw := req.Params.Arguments
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		var res mcp.CallToolResult
		res.SetError(fmt.Errorf("invalid arguments: %w", err))
		return &res
	}
	return nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
