// Package mcppreview surfaces approved capabilities as MCP tools. Tool
// handlers only ever return a dry-run request plan; the upstream API is
// never called.
package mcppreview

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpGoServer "github.com/mark3labs/mcp-go/server"

	"github.com/speclab/specgate/internal/domain"
	"github.com/speclab/specgate/internal/usecase"
)

// Registrar registers preview tools on an MCP server.
type Registrar struct {
	server usecase.MCPServerAdapter
	logger *slog.Logger
}

// NewRegistrar creates a new Registrar.
func NewRegistrar(server usecase.MCPServerAdapter, logger *slog.Logger) *Registrar {
	return &Registrar{
		server: server,
		logger: logger.With("component", "mcp_preview"),
	}
}

// RegisterSession exposes every capability the session's classification
// run allows and returns how many tools were registered. A session
// without a run exposes nothing.
func (r *Registrar) RegisterSession(ctx context.Context, session domain.Session) int {
	log := r.logger.With(slog.String("session_id", session.ID))
	if session.Run == nil {
		log.Warn("Session has no classification run, nothing to expose")
		return 0
	}

	records := make(map[string]domain.Record, len(session.Run.Records))
	for _, rec := range session.Run.Records {
		records[rec.Name] = rec
	}

	registered := 0
	for _, c := range session.Capabilities {
		rec, ok := records[c.Name]
		if !ok || rec.Expose != domain.ExposureAllow {
			continue
		}
		r.server.AddTool(buildTool(c), r.previewHandler(session.Spec.BaseURL, c, rec))
		registered++
		log.Debug("Registered preview tool",
			slog.String("tool", c.Name),
			slog.String("classification", string(rec.Classification)))
	}

	log.Info("Registered preview tools for session.",
		slog.Int("registered", registered),
		slog.Int("capabilities", len(session.Capabilities)))
	return registered
}

// buildTool maps a capability onto an MCP tool declaration.
func buildTool(c domain.Capability) mcp.Tool {
	desc := c.Description
	if desc == "" {
		desc = fmt.Sprintf("%s %s", c.Method, c.Path)
	}
	desc += " (dry-run preview: returns the request plan, never calls the API)"

	opts := []mcp.ToolOption{mcp.WithDescription(desc)}
	for _, p := range c.Params {
		opts = append(opts, paramOption(p))
	}
	return mcp.NewTool(c.Name, opts...)
}

func paramOption(p domain.CapabilityParam) mcp.ToolOption {
	var propOpts []mcp.PropertyOption
	if p.Description != "" {
		propOpts = append(propOpts, mcp.Description(p.Description))
	}
	if p.Required {
		propOpts = append(propOpts, mcp.Required())
	}

	switch p.Type {
	case "number", "integer":
		return mcp.WithNumber(p.Name, propOpts...)
	case "boolean":
		return mcp.WithBoolean(p.Name, propOpts...)
	case "object":
		return mcp.WithObject(p.Name, propOpts...)
	case "array":
		return mcp.WithArray(p.Name, propOpts...)
	default:
		return mcp.WithString(p.Name, propOpts...)
	}
}

// previewHandler returns the dry-run handler for one capability.
func (r *Registrar) previewHandler(baseURL string, c domain.Capability, rec domain.Record) mcpGoServer.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		plan := BuildPlan(baseURL, c, rec, req.GetArguments())
		data, err := json.MarshalIndent(plan, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode request plan for %s: %w", c.Name, err)
		}
		r.logger.Debug("Produced dry-run plan", slog.String("tool", c.Name))
		return mcp.NewToolResultText(string(data)), nil
	}
}

// RequestPlan is what a preview tool call returns: the upstream request
// the capability would make, assembled but not sent.
type RequestPlan struct {
	DryRun          bool                  `json:"dry_run"`
	Capability      string                `json:"capability"`
	Classification  domain.Classification `json:"classification"`
	Reason          string                `json:"reason"`
	Confidence      float64               `json:"confidence"`
	Method          string                `json:"method"`
	URL             string                `json:"url"`
	Query           map[string]any        `json:"query,omitempty"`
	Headers         map[string]any        `json:"headers,omitempty"`
	Cookies         map[string]any        `json:"cookies,omitempty"`
	Form            map[string]any        `json:"form,omitempty"`
	Body            map[string]any        `json:"body,omitempty"`
	MissingRequired []string              `json:"missing_required,omitempty"`
	Note            string                `json:"note"`
}

// BuildPlan assembles the request plan for a capability from tool-call
// arguments. Path templates substitute provided values and keep the
// {placeholder} for anything absent; required parameters that were not
// supplied are listed instead of failing the call.
func BuildPlan(baseURL string, c domain.Capability, rec domain.Record, args map[string]any) RequestPlan {
	plan := RequestPlan{
		DryRun:         true,
		Capability:     c.Name,
		Classification: rec.Classification,
		Reason:         rec.Reason,
		Confidence:     rec.Confidence,
		Method:         c.Method,
		Note:           "Preview only. No request was sent.",
	}

	path := c.Path
	for _, p := range c.Params {
		val, present := args[p.Name]
		if !present {
			if p.Required {
				plan.MissingRequired = append(plan.MissingRequired, p.Name)
			}
			continue
		}
		switch p.Location {
		case string(domain.LocationPath):
			path = strings.ReplaceAll(path, "{"+p.Name+"}", fmt.Sprint(val))
		case string(domain.LocationHeader):
			if plan.Headers == nil {
				plan.Headers = map[string]any{}
			}
			plan.Headers[p.Name] = val
		case string(domain.LocationCookie):
			if plan.Cookies == nil {
				plan.Cookies = map[string]any{}
			}
			plan.Cookies[p.Name] = val
		case string(domain.LocationForm):
			if plan.Form == nil {
				plan.Form = map[string]any{}
			}
			plan.Form[p.Name] = val
		case string(domain.LocationBody):
			if plan.Body == nil {
				plan.Body = map[string]any{}
			}
			plan.Body[p.Name] = val
		default:
			if plan.Query == nil {
				plan.Query = map[string]any{}
			}
			plan.Query[p.Name] = val
		}
	}

	plan.URL = strings.TrimRight(baseURL, "/") + path
	return plan
}
