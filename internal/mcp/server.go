// Package mcp implements an MCP (Model Context Protocol) server for RateMyFit.
//
// It exposes the clothing-tag extraction pipeline, the response recovery
// parser and wardrobe entry editing as MCP tools so agents can call them
// over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hurttlocker/ratemyfit/internal/extract"
	"github.com/hurttlocker/ratemyfit/internal/feedback"
	"github.com/hurttlocker/ratemyfit/internal/store"
	"github.com/hurttlocker/ratemyfit/internal/wardrobe"
)

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	Service  *wardrobe.Service
	Pipeline *extract.Pipeline
	Store    store.Store
	Version  string
}

// SQLite only tolerates one writer; tool handlers serialize on this.
var dbMu sync.Mutex

// NewServer creates an MCP server with all RateMyFit tools and resources registered.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}

	s := server.NewMCPServer(
		"RateMyFit",
		ver,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(true, false),
	)

	if cfg.Pipeline != nil {
		registerExtractTool(s, cfg.Pipeline)
	}
	registerParseFeedbackTool(s)
	if cfg.Service != nil {
		registerOutfitItemsTool(s, cfg.Service)
	}
	if cfg.Store != nil {
		registerStatsResource(s, cfg.Store)
		registerWhitelistResource(s, cfg.Store)
	}

	return s
}

func registerExtractTool(s *server.MCPServer, pipeline *extract.Pipeline) {
	tool := mcp.NewTool("ratemyfit_extract_items",
		mcp.WithDescription("Extract clothing item tags (name, descriptors, category, confidence) from outfit feedback text and suggestions."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("feedback",
			mcp.Description("Free-form feedback text about an outfit"),
		),
		mcp.WithArray("suggestions",
			mcp.Description("Short suggestion strings accompanying the feedback"),
			mcp.WithStringItems(),
		),
		mcp.WithString("gender",
			mcp.Description("Catalog gender filter"),
			mcp.Enum("men", "women", "unisex"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		in := extract.Input{
			Feedback:    req.GetString("feedback", ""),
			Suggestions: req.GetStringSlice("suggestions", nil),
			Gender:      req.GetString("gender", ""),
		}
		if strings.TrimSpace(in.Text()) == "" {
			return mcp.NewToolResultError("feedback or suggestions is required"), nil
		}

		res := pipeline.Extract(ctx, in)
		data, _ := json.MarshalIndent(res, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerParseFeedbackTool(s *server.MCPServer) {
	tool := mcp.NewTool("ratemyfit_parse_feedback",
		mcp.WithDescription("Recover a rating response (score, feedback, suggestions) from raw model output. Never fails: unusable text yields a generated fallback."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Raw model output to parse"),
		),
		mcp.WithString("mode",
			mcp.Description("Feedback mode (default: standard)"),
			mcp.Enum("standard", "roast"),
		),
		mcp.WithBoolean("require_style_analysis",
			mcp.Description("Require the styleAnalysis block in standard mode (default: false)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError("text is required"), nil
		}

		res := feedback.Parse(text, feedback.ParseOptions{
			Mode:                 feedback.ParseMode(req.GetString("mode", "")),
			RequireStyleAnalysis: req.GetBool("require_style_analysis", false),
		})
		data, _ := json.MarshalIndent(res, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerOutfitItemsTool(s *server.MCPServer, svc *wardrobe.Service) {
	tool := mcp.NewTool("ratemyfit_outfit_items",
		mcp.WithDescription("Show, re-tag, remove or rename the extracted clothing items of a stored outfit rating."),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Outfit entry ID (e.g. fit-V1StGXR8_Z5jdHi6B-myT)"),
		),
		mcp.WithString("action",
			mcp.Description("What to do (default: show)"),
			mcp.Enum("show", "tag", "remove", "rename"),
		),
		mcp.WithNumber("index",
			mcp.Description("Item index for remove and rename"),
		),
		mcp.WithString("name",
			mcp.Description("Corrected tag for rename"),
		),
		mcp.WithString("gender",
			mcp.Description("Catalog gender filter for tag"),
			mcp.Enum("men", "women", "unisex"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		id, err := req.RequireString("id")
		if err != nil || strings.TrimSpace(id) == "" {
			return mcp.NewToolResultError("id is required"), nil
		}

		var entry *store.WardrobeEntry
		switch action := req.GetString("action", "show"); action {
		case "show":
			entry, err = svc.Get(ctx, id)
		case "tag":
			entry, _, err = svc.Tag(ctx, id, req.GetString("gender", ""))
		case "remove", "rename":
			idx, ierr := req.RequireFloat("index")
			if ierr != nil || idx < 0 {
				return mcp.NewToolResultError("index is required for " + action), nil
			}
			if action == "remove" {
				entry, err = svc.RemoveItem(ctx, id, int(idx))
				break
			}
			name := req.GetString("name", "")
			if strings.TrimSpace(name) == "" {
				return mcp.NewToolResultError("name is required for rename"), nil
			}
			entry, err = svc.RenameItem(ctx, id, int(idx), name)
		default:
			return mcp.NewToolResultError(fmt.Sprintf("unknown action %q (use show, tag, remove or rename)", action)), nil
		}
		if err != nil {
			return mcp.NewToolResultError(toolError(err)), nil
		}

		data, _ := json.MarshalIndent(entry, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func toolError(err error) string {
	switch {
	case errors.Is(err, wardrobe.ErrNotFound):
		return "outfit not found"
	case errors.Is(err, wardrobe.ErrIndexOutOfRange):
		return "item index out of range"
	default:
		return err.Error()
	}
}
