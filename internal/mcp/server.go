// Package mcp exposes the memory bank over the Model Context Protocol
// so coding agents can inspect and maintain it without shelling out.
package mcp

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/halcyonlabs/membank/internal/archive"
	"github.com/halcyonlabs/membank/internal/bank"
	"github.com/halcyonlabs/membank/internal/health"
	"github.com/halcyonlabs/membank/internal/project"
)

// Server wraps the MCP server with membank's bank.
type Server struct {
	bank   *bank.Bank
	server *mcp.Server
}

// NewServer creates a new membank MCP server.
func NewServer(b *bank.Bank, version string) *Server {
	s := &Server{bank: b}

	impl := &mcp.Implementation{
		Name:    "membank",
		Version: version,
	}

	s.server = mcp.NewServer(impl, nil)
	s.registerTools()

	return s
}

// Run starts the MCP server on stdio.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "memory_health",
		Description: "Inspect the memory bank: line counts, character counts, token estimates, " +
			"and staleness for every tracked file, plus any budget warnings. " +
			"PROACTIVE USE: Call this at the start of a session to judge whether the bank needs " +
			"maintenance before loading its content.",
	}, s.handleHealth)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "memory_archive",
		Description: "Archive stale daily-log sections and completed sprint files according to the " +
			"configured retention policy. Set dry_run=true to preview what would move without " +
			"touching any file. Run this when memory_health reports the log over budget.",
	}, s.handleArchive)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "memory_log",
		Description: "Append an entry to today's section of the daily log. " +
			"USE THIS to record decisions, findings, and completed work as they happen - " +
			"entries land under today's date heading and survive across sessions.",
	}, s.handleLog)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "memory_read",
		Description: "Read a file from the memory bank by its path relative to the memory directory " +
			"(e.g. USER.md, PROJECT.md, workflows/api/SPRINT_12.md). Paths that escape the " +
			"memory directory are rejected.",
	}, s.handleRead)
}

// HealthArgs defines the input for memory_health.
type HealthArgs struct{}

// FileReport is a per-file view of the bank's state.
type FileReport struct {
	Name    string `json:"name"`
	Lines   int    `json:"lines"`
	Chars   int    `json:"chars"`
	Tokens  int    `json:"tokens"`
	AgeDays int    `json:"age_days"`
	Missing bool   `json:"missing,omitempty"`
}

// HealthResult is the output of memory_health.
type HealthResult struct {
	Files       []FileReport `json:"files"`
	Tier1Tokens int          `json:"tier1_tokens"`
	LogLines    int          `json:"log_lines"`
	SprintCount int          `json:"sprint_count"`
	Issues      []string     `json:"issues,omitempty"`
	Healthy     bool         `json:"healthy"`
}

func (s *Server) handleHealth(ctx context.Context, req *mcp.CallToolRequest, args HealthArgs) (*mcp.CallToolResult, any, error) {
	report := health.Inspect(s.bank, time.Now())

	out := HealthResult{
		Tier1Tokens: report.Tier1Tokens,
		LogLines:    report.LogLines,
		SprintCount: report.SprintCount,
		Healthy:     !report.HasErrors(),
	}
	for _, f := range report.Files {
		out.Files = append(out.Files, FileReport{
			Name:    f.Name,
			Lines:   f.Lines,
			Chars:   f.Chars,
			Tokens:  f.Tokens,
			AgeDays: f.AgeDays,
			Missing: f.Missing,
		})
	}
	for _, issue := range report.Issues {
		out.Issues = append(out.Issues, fmt.Sprintf("[%s] %s", issue.Severity, issue.Message))
	}

	return nil, out, nil
}

// ArchiveArgs defines the input for memory_archive.
type ArchiveArgs struct {
	DryRun bool `json:"dry_run,omitempty" jsonschema:"Preview what would be archived without writing or deleting anything (default: false)"`
}

// ArchiveResult is the output of memory_archive.
type ArchiveResult struct {
	SectionsArchived int      `json:"sections_archived"`
	LinesBefore      int      `json:"lines_before"`
	LinesAfter       int      `json:"lines_after"`
	SprintsArchived  int      `json:"sprints_archived"`
	Sprints          []string `json:"sprints,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`
	DryRun           bool     `json:"dry_run,omitempty"`
	Message          string   `json:"message,omitempty"`
}

func (s *Server) handleArchive(ctx context.Context, req *mcp.CallToolRequest, args ArchiveArgs) (*mcp.CallToolResult, any, error) {
	report, err := archive.Run(s.bank, time.Now(), args.DryRun)
	if err != nil {
		return nil, nil, fmt.Errorf("archive failed: %w", err)
	}

	out := ArchiveResult{
		SectionsArchived: report.Log.SectionsArchived,
		LinesBefore:      report.Log.LinesBefore,
		LinesAfter:       report.Log.LinesAfter,
		SprintsArchived:  report.Sweep.UnitsArchived,
		Sprints:          report.Sweep.Archived,
		Warnings:         report.Warnings,
		DryRun:           args.DryRun,
	}
	if report.Log.SectionsArchived == 0 && report.Sweep.UnitsArchived == 0 {
		out.Message = "Nothing to archive - the log and sprints are within retention."
	}

	return nil, out, nil
}

// LogArgs defines the input for memory_log.
type LogArgs struct {
	Text string `json:"text" jsonschema:"The entry to record, one line (e.g. 'Switched auth to JWT - session cookies broke the CLI flow')"`
}

// LogResult is the output of memory_log.
type LogResult struct {
	Date    string `json:"date"`
	Message string `json:"message"`
}

func (s *Server) handleLog(ctx context.Context, req *mcp.CallToolRequest, args LogArgs) (*mcp.CallToolResult, any, error) {
	if args.Text == "" {
		return nil, nil, fmt.Errorf("text is required")
	}

	now := time.Now()
	if err := archive.AppendEntry(s.bank, now, args.Text); err != nil {
		return nil, nil, fmt.Errorf("append entry: %w", err)
	}

	out := LogResult{
		Date:    now.UTC().Format("2006-01-02"),
		Message: "Entry recorded in the daily log.",
	}
	return nil, out, nil
}

// ReadArgs defines the input for memory_read.
type ReadArgs struct {
	Path string `json:"path" jsonschema:"Path relative to the memory directory (e.g. USER.md, GLOBAL_DAILY_LOG.md, workflows/api/SPRINT_12.md)"`
}

// ReadResult is the output of memory_read.
type ReadResult struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (s *Server) handleRead(ctx context.Context, req *mcp.CallToolRequest, args ReadArgs) (*mcp.CallToolResult, any, error) {
	if args.Path == "" {
		return nil, nil, fmt.Errorf("path is required")
	}

	resolved, err := project.ResolveContained(s.bank.Path(), args.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve %q: %w", args.Path, err)
	}

	content, err := os.ReadFile(resolved)
	if err != nil {
		return nil, nil, fmt.Errorf("read %q: %w", args.Path, err)
	}

	out := ReadResult{
		Path:    args.Path,
		Content: string(content),
	}
	return nil, out, nil
}
