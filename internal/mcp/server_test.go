package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hurttlocker/ratemyfit/internal/extract"
	"github.com/hurttlocker/ratemyfit/internal/feedback"
	"github.com/hurttlocker/ratemyfit/internal/store"
	"github.com/hurttlocker/ratemyfit/internal/wardrobe"
)

// helper: seeded in-memory store plus a server over it
func setupTestServer(t *testing.T) (*server.MCPServer, *store.SQLiteStore) {
	t.Helper()
	st, err := store.Open(store.StoreConfig{DBPath: ":memory:"})
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if _, err := st.LoadDefaultSeed(context.Background()); err != nil {
		t.Fatalf("seeding test store: %v", err)
	}

	pipeline := extract.NewPipeline(extract.WithReferenceStore(st))
	svc := wardrobe.NewService(st, pipeline, nil, nil)
	return NewServer(ServerConfig{Service: svc, Pipeline: pipeline, Store: st, Version: "test"}), st
}

func TestNewServer(t *testing.T) {
	srv := NewServer(ServerConfig{})
	if srv == nil {
		t.Fatal("NewServer returned nil")
	}
}

type toolResponse struct {
	Text    string
	IsError bool
}

// callTool invokes a tool through the JSON-RPC entry point.
func callTool(t *testing.T, srv *server.MCPServer, name string, args map[string]interface{}) toolResponse {
	t.Helper()
	result := srv.HandleMessage(context.Background(), rpc(t, "tools/call", map[string]interface{}{
		"name":      name,
		"arguments": args,
	}))

	var resp struct {
		Result struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
			IsError bool `json:"isError"`
		} `json:"result"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	decodeRPC(t, result, &resp)
	if resp.Error != nil {
		t.Fatalf("JSON-RPC error: %d %s", resp.Error.Code, resp.Error.Message)
	}

	var out toolResponse
	out.IsError = resp.Result.IsError
	for _, c := range resp.Result.Content {
		if c.Type == "text" {
			out.Text += c.Text
		}
	}
	return out
}

func readResource(t *testing.T, srv *server.MCPServer, uri string) string {
	t.Helper()
	result := srv.HandleMessage(context.Background(), rpc(t, "resources/read", map[string]interface{}{"uri": uri}))

	var resp struct {
		Result struct {
			Contents []struct {
				Text string `json:"text"`
			} `json:"contents"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	decodeRPC(t, result, &resp)
	if resp.Error != nil {
		t.Fatalf("JSON-RPC error: %s", resp.Error.Message)
	}
	if len(resp.Result.Contents) == 0 {
		t.Fatal("no resource contents")
	}
	return resp.Result.Contents[0].Text
}

func rpc(t *testing.T, method string, params interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func decodeRPC(t *testing.T, msg mcplib.JSONRPCMessage, out interface{}) {
	t.Helper()
	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("unmarshal response: %v\nraw: %s", err, string(raw))
	}
}

func TestExtractItemsTool(t *testing.T) {
	srv, _ := setupTestServer(t)

	res := callTool(t, srv, "ratemyfit_extract_items", map[string]interface{}{
		"feedback":    "You should try a white cardigan and pair it with dark jeans.",
		"suggestions": []string{"Add a brown leather belt"},
	})
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", res.Text)
	}

	var out extract.Result
	if err := json.Unmarshal([]byte(res.Text), &out); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	names := map[string]extract.Category{}
	for _, it := range out.Items {
		names[it.Name] = it.Category
	}
	if names["white cardigan"] != extract.CategoryOuterwear {
		t.Errorf("white cardigan category = %q, items %+v", names["white cardigan"], out.Items)
	}
	if names["dark jeans"] != extract.CategoryBottoms {
		t.Errorf("dark jeans category = %q, items %+v", names["dark jeans"], out.Items)
	}
}

func TestExtractItemsTool_EmptyInput(t *testing.T) {
	srv, _ := setupTestServer(t)
	res := callTool(t, srv, "ratemyfit_extract_items", map[string]interface{}{"feedback": "   "})
	if !res.IsError {
		t.Fatalf("expected tool error, got %s", res.Text)
	}
}

func TestParseFeedbackTool(t *testing.T) {
	srv, _ := setupTestServer(t)

	tests := []struct {
		name     string
		args     map[string]interface{}
		wantPath feedback.Path
	}{
		{
			name:     "fenced json",
			args:     map[string]interface{}{"text": "```json\n{\"score\": 8, \"feedback\": \"Sharp tailoring throughout.\", \"suggestions\": [\"Try loafers\"]}\n```"},
			wantPath: feedback.PathStrict,
		},
		{
			name:     "policy refusal",
			args:     map[string]interface{}{"text": "I'm sorry, but I can't help with that.", "mode": "roast"},
			wantPath: feedback.PathPolicy,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := callTool(t, srv, "ratemyfit_parse_feedback", tt.args)
			if res.IsError {
				t.Fatalf("unexpected tool error: %s", res.Text)
			}
			var out feedback.ParseResult
			if err := json.Unmarshal([]byte(res.Text), &out); err != nil {
				t.Fatalf("decoding result: %v", err)
			}
			if out.Path != tt.wantPath {
				t.Errorf("path = %q, want %q", out.Path, tt.wantPath)
			}
			if out.Response.Score < 1 || out.Response.Score > 10 {
				t.Errorf("score out of range: %d", out.Response.Score)
			}
		})
	}
}

func TestParseFeedbackTool_MissingText(t *testing.T) {
	srv, _ := setupTestServer(t)
	res := callTool(t, srv, "ratemyfit_parse_feedback", map[string]interface{}{})
	if !res.IsError {
		t.Fatalf("expected tool error, got %s", res.Text)
	}
}

func TestOutfitItemsTool(t *testing.T) {
	srv, st := setupTestServer(t)
	ctx := context.Background()

	entryID, err := st.CreateEntry(ctx, &store.WardrobeEntry{
		UserID:   "usr-1",
		Feedback: "Pair it with a leather belt and swap in loafers.",
	})
	if err != nil {
		t.Fatalf("creating entry: %v", err)
	}

	decode := func(t *testing.T, res toolResponse) store.WardrobeEntry {
		t.Helper()
		if res.IsError {
			t.Fatalf("unexpected tool error: %s", res.Text)
		}
		var e store.WardrobeEntry
		if err := json.Unmarshal([]byte(res.Text), &e); err != nil {
			t.Fatalf("decoding entry: %v", err)
		}
		return e
	}

	tagged := decode(t, callTool(t, srv, "ratemyfit_outfit_items", map[string]interface{}{"id": entryID, "action": "tag"}))
	if len(tagged.Items) == 0 {
		t.Fatal("expected tag to populate items")
	}

	renamed := decode(t, callTool(t, srv, "ratemyfit_outfit_items", map[string]interface{}{
		"id": entryID, "action": "rename", "index": 0, "name": "Navy Blazer",
	}))
	if renamed.Items[0].Name != "navy blazer" {
		t.Errorf("renamed item = %q", renamed.Items[0].Name)
	}

	removed := decode(t, callTool(t, srv, "ratemyfit_outfit_items", map[string]interface{}{
		"id": entryID, "action": "remove", "index": 0,
	}))
	if len(removed.Items) != len(tagged.Items)-1 {
		t.Errorf("items after remove = %d, want %d", len(removed.Items), len(tagged.Items)-1)
	}

	shown := decode(t, callTool(t, srv, "ratemyfit_outfit_items", map[string]interface{}{"id": entryID}))
	if len(shown.Items) != len(removed.Items) {
		t.Errorf("show returned %d items, want %d", len(shown.Items), len(removed.Items))
	}
}

func TestOutfitItemsTool_Errors(t *testing.T) {
	srv, _ := setupTestServer(t)

	tests := []struct {
		name    string
		args    map[string]interface{}
		wantMsg string
	}{
		{"missing entry", map[string]interface{}{"id": "fit-missing"}, "not found"},
		{"remove without index", map[string]interface{}{"id": "fit-missing", "action": "remove"}, "index is required"},
		{"rename without name", map[string]interface{}{"id": "fit-missing", "action": "rename", "index": 0}, "name is required"},
		{"unknown action", map[string]interface{}{"id": "fit-missing", "action": "burn"}, "unknown action"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := callTool(t, srv, "ratemyfit_outfit_items", tt.args)
			if !res.IsError {
				t.Fatalf("expected tool error, got %s", res.Text)
			}
			if !strings.Contains(res.Text, tt.wantMsg) {
				t.Errorf("error %q does not contain %q", res.Text, tt.wantMsg)
			}
		})
	}
}

func TestResources(t *testing.T) {
	srv, _ := setupTestServer(t)

	var stats store.StoreStats
	if err := json.Unmarshal([]byte(readResource(t, srv, "ratemyfit://stats")), &stats); err != nil {
		t.Fatalf("decoding stats: %v", err)
	}
	if stats.WhitelistCount == 0 || stats.CatalogCount == 0 {
		t.Errorf("expected seeded counts, got %+v", stats)
	}

	var wl struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal([]byte(readResource(t, srv, "ratemyfit://whitelist")), &wl); err != nil {
		t.Fatalf("decoding whitelist: %v", err)
	}
	if int64(wl.Count) != stats.WhitelistCount {
		t.Errorf("whitelist count = %d, stats say %d", wl.Count, stats.WhitelistCount)
	}
}
