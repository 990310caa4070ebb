package inspect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/linkwatch/activity"
)

// NewMCPServer returns an MCP server with the inspect tools registered.
func NewMCPServer(src StatusSource, version string) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "linkwatch", Version: version}, nil)
	RegisterMCP(srv, src)
	return srv
}

// ServeMCP runs the inspect tools over stdio until ctx is cancelled or the
// client disconnects.
func ServeMCP(ctx context.Context, src StatusSource, version string) error {
	return NewMCPServer(src, version).Run(ctx, &mcp.StdioTransport{})
}

// RegisterMCP registers the inspect tools on srv.
func RegisterMCP(srv *mcp.Server, src StatusSource) {
	registerState(srv, src)
	registerProfile(srv, src)
	registerFingerprint(srv)
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

// addTool registers fn as a tool whose result is returned as JSON text.
// Argument and endpoint errors become tool errors, not protocol errors.
func addTool[T any](srv *mcp.Server, tool *mcp.Tool, fn func(context.Context, *T) (any, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args T
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return toolError(fmt.Errorf("invalid arguments: %w", err)), nil
			}
		}
		resp, err := fn(ctx, &args)
		if err != nil {
			return toolError(err), nil
		}
		data, err := json.Marshal(resp)
		if err != nil {
			return toolError(fmt.Errorf("marshal: %w", err)), nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

func toolError(err error) *mcp.CallToolResult {
	var res mcp.CallToolResult
	res.SetError(err)
	return &res
}

func registerState(srv *mcp.Server, src StatusSource) {
	tool := &mcp.Tool{
		Name:        "linkwatch_state",
		Description: "Seen-state summary: fingerprint counts per profile, run mode and last cycle",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	addTool(srv, tool, func(context.Context, *struct{}) (any, error) {
		return View(src.Status()), nil
	})
}

func registerProfile(srv *mcp.Server, src StatusSource) {
	type req struct {
		Profile string `json:"profile"`
	}
	tool := &mcp.Tool{
		Name:        "linkwatch_profile",
		Description: "Fingerprints recorded for one profile, most recent first",
		InputSchema: inputSchema(map[string]any{
			"profile": map[string]any{"type": "string", "description": "Profile URL or slug"},
		}, []string{"profile"}),
	}
	addTool(srv, tool, func(_ context.Context, r *req) (any, error) {
		if r.Profile == "" {
			return nil, errors.New("profile is required")
		}
		profile, fps, ok := ProfileFingerprints(src.Status(), r.Profile)
		if !ok {
			return nil, fmt.Errorf("unknown profile %q", r.Profile)
		}
		return map[string]any{"profile": profile, "fingerprints": fps}, nil
	})
}

func registerFingerprint(srv *mcp.Server) {
	type req struct {
		Kind string `json:"kind"`
		Link string `json:"link"`
		Text string `json:"text"`
	}
	tool := &mcp.Tool{
		Name:        "linkwatch_fingerprint",
		Description: "Compute the fingerprint and intra-pass signature of an activity record",
		InputSchema: inputSchema(map[string]any{
			"kind": map[string]any{"type": "string", "description": "Post, Comment or Like"},
			"link": map[string]any{"type": "string", "description": "Referenced post URL"},
			"text": map[string]any{"type": "string", "description": "Activity text"},
		}, []string{"kind", "text"}),
	}
	addTool(srv, tool, func(_ context.Context, r *req) (any, error) {
		kind, err := activity.ParseKind(r.Kind)
		if err != nil {
			return nil, err
		}
		rec, err := activity.NewRecord(kind, r.Text, r.Link)
		if err != nil {
			return nil, err
		}
		return map[string]string{
			"kind":        string(rec.Kind),
			"link":        rec.Link,
			"fingerprint": activity.Fingerprint(rec),
			"signature":   activity.Signature(rec),
		}, nil
	})
}
