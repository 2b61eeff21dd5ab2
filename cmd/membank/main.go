package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/halcyonlabs/membank/internal/archive"
	"github.com/halcyonlabs/membank/internal/bank"
	"github.com/halcyonlabs/membank/internal/fsio"
	"github.com/halcyonlabs/membank/internal/health"
	membankmcp "github.com/halcyonlabs/membank/internal/mcp"
	"github.com/halcyonlabs/membank/internal/project"
	"github.com/halcyonlabs/membank/internal/scaffold"
	"github.com/halcyonlabs/membank/internal/ui"
)

// Set via ldflags at build time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func buildVersion() string {
	if commit == "none" {
		return version
	}
	return fmt.Sprintf("%s (%s, %s)", version, commit, date)
}

func main() {
	var noColor bool

	rootCmd := &cobra.Command{
		Use:   "membank",
		Short: "membank — persistent memory for coding agents",
		Long:  "A local CLI tool that maintains a markdown memory bank inside a project: a rolling daily log, always-loaded context files, and sprint workflows, with retention-driven archiving.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ui.Init(noColor)
		},
	}

	rootCmd.Version = buildVersion()
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	// Command groups
	rootCmd.AddGroup(
		&cobra.Group{ID: "core", Title: "Core Commands:"},
		&cobra.Group{ID: "memory", Title: "Memory Commands:"},
		&cobra.Group{ID: "config", Title: "Configuration:"},
	)

	initC := initCmd()
	initC.GroupID = "core"
	healthC := healthCmd()
	healthC.GroupID = "core"
	archiveC := archiveCmd()
	archiveC.GroupID = "core"

	logC := logCmd()
	logC.GroupID = "memory"
	showC := showCmd()
	showC.GroupID = "memory"

	configC := configCmd()
	configC.GroupID = "config"

	rootCmd.AddCommand(initC)
	rootCmd.AddCommand(healthC)
	rootCmd.AddCommand(archiveC)
	rootCmd.AddCommand(logC)
	rootCmd.AddCommand(showC)
	rootCmd.AddCommand(configC)
	rootCmd.AddCommand(mcpServeCmd())
	rootCmd.AddCommand(completionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// findRoot locates the project root from the current directory.
func findRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("cannot determine working directory: %w", err)
	}
	root, err := project.FindRoot(cwd)
	if err != nil {
		return "", err
	}
	return root.Dir, nil
}

// openBank locates the project root and opens its memory bank,
// surfacing policy warnings through the logger.
func openBank() (*bank.Bank, error) {
	rootDir, err := findRoot()
	if err != nil {
		return nil, err
	}
	b, warnings, err := bank.Open(rootDir)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		ui.Logger.Warn(w)
	}
	return b, nil
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:     "init",
		Short:   "Initialize the memory bank in the current project",
		Long:    "Create the memory/ directory at the project root with the daily log, tier-1 context files, the workflow guide, workflows/, archive/, and a default config.yaml. The project root is found by walking up to a .git or package.json marker.",
		Example: "  membank init\n  membank init --force",
		RunE: func(cmd *cobra.Command, args []string) error {
			rootDir, err := findRoot()
			if err != nil {
				return err
			}

			if force {
				ok, err := ui.Confirm("Reinitialize the memory bank? Existing memory files will be reset to their templates.")
				if err != nil {
					return err
				}
				if !ok {
					ui.Info("Aborted.")
					return nil
				}
			}

			result, err := scaffold.Init(rootDir, force)
			if err != nil {
				return err
			}

			ui.Success("Memory bank initialized")
			ui.Detail("Root:", rootDir)
			for _, f := range result.Created {
				ui.Detail("Created:", f)
			}
			for _, f := range result.Skipped {
				ui.Detail("Kept:", f)
			}
			if result.IgnoreResult == fsio.LineAdded {
				ui.Detail("Updated:", ".gitignore")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Reinitialize even if the memory bank already exists")
	return cmd
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the size and staleness of the memory bank",
		Long:  "Report per-file line counts, character counts, token estimates, and days since last update, then check the aggregate numbers against the configured budgets. Exits 0 when healthy, 1 with warnings, 2 with errors.",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBank()
			if err != nil {
				return err
			}

			report := health.Inspect(b, time.Now())

			ui.CommandBanner("HEALTH", "memory bank inspection")

			rows := make([][]string, 0, len(report.Files))
			for _, f := range report.Files {
				if f.Missing {
					rows = append(rows, []string{f.Name, "-", "-", "-", ui.Red("missing")})
					continue
				}
				rows = append(rows, []string{
					f.Name,
					fmt.Sprintf("%d", f.Lines),
					fmt.Sprintf("%d", f.Chars),
					fmt.Sprintf("~%d", f.Tokens),
					fmt.Sprintf("%dd", f.AgeDays),
				})
			}
			ui.Table([]string{"FILE", "LINES", "CHARS", "TOKENS", "AGE"}, rows)

			ui.SectionHeader("Budgets")
			tier1 := fmt.Sprintf("~%d (budget %d)", report.Tier1Tokens, int(b.Policy.WarnTier1Tokens))
			if float64(report.Tier1Tokens) > b.Policy.WarnTier1Tokens {
				tier1 = ui.Yellow(tier1)
			} else {
				tier1 = ui.Green(tier1)
			}
			logLines := fmt.Sprintf("%d (budget %d)", report.LogLines, int(b.Policy.WarnLogLines))
			if float64(report.LogLines) > b.Policy.WarnLogLines {
				logLines = ui.Yellow(logLines)
			} else {
				logLines = ui.Green(logLines)
			}
			ui.KeyValue("Tier-1 tokens:", tier1)
			ui.KeyValue("Log lines:", logLines)
			ui.KeyValue("Active sprints:", fmt.Sprintf("%d", report.SprintCount))

			if len(report.Issues) == 0 {
				ui.Success("Everything looks good")
				os.Exit(0)
			}

			hasError := false
			for _, issue := range report.Issues {
				if issue.Severity == "error" {
					ui.Error(fmt.Sprintf("[ERR]  %s", issue.Message))
					hasError = true
				} else {
					ui.Warning(fmt.Sprintf("[WARN] %s", issue.Message))
				}
			}

			if hasError {
				os.Exit(2)
			}
			os.Exit(1)
			return nil
		},
	}
}

func archiveCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:     "archive",
		Short:   "Archive stale log sections and completed sprints",
		Long:    "Move daily-log sections older than the retention window into dated archive files, and sweep sprint files marked completed into the archive tree. Use --dry-run to preview without touching anything.",
		Example: "  membank archive\n  membank archive --dry-run",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBank()
			if err != nil {
				return err
			}

			report, err := archive.Run(b, time.Now(), dryRun)
			if err != nil {
				return err
			}

			if dryRun {
				ui.CommandBanner("ARCHIVE", "dry run — nothing will be written")
			} else {
				ui.CommandBanner("ARCHIVE", "retention pass")
			}

			for _, w := range report.Warnings {
				ui.Warning(w)
			}

			if report.Log.SectionsArchived == 0 && report.Sweep.UnitsArchived == 0 {
				ui.EmptyState("Nothing to archive — the log and sprints are within retention.")
				return nil
			}

			if report.Log.SectionsArchived > 0 {
				verb := "Archived"
				if dryRun {
					verb = "Would archive"
				}
				ui.Success(fmt.Sprintf("%s %d log section(s)", verb, report.Log.SectionsArchived))
				ui.Detail("Log lines:", fmt.Sprintf("%d → %d", report.Log.LinesBefore, report.Log.LinesAfter))
			}
			for _, name := range report.Sweep.Archived {
				if dryRun {
					ui.Detail("Would archive:", name)
				} else {
					ui.Detail("Archived:", name)
				}
			}
			if report.Sweep.UnitsArchived > 0 {
				verb := "Archived"
				if dryRun {
					verb = "Would archive"
				}
				ui.Success(fmt.Sprintf("%s %d completed sprint(s)", verb, report.Sweep.UnitsArchived))
			}
			if dryRun {
				ui.Info("Run without --dry-run to apply.")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview what would be archived")
	return cmd
}

func logCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "log <text>",
		Short:   "Append an entry to today's section of the daily log",
		Example: "  membank log \"Switched auth to JWT — session cookies broke the CLI flow\"",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBank()
			if err != nil {
				return err
			}

			text := strings.Join(args, " ")
			now := time.Now()
			if err := archive.AppendEntry(b, now, text); err != nil {
				return err
			}

			ui.Success(fmt.Sprintf("Logged under %s", ui.Bold(now.UTC().Format("2006-01-02"))))
			return nil
		},
	}
}

func showCmd() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:     "show <file>",
		Short:   "Render a memory bank file in the terminal",
		Long:    "Display a file from the memory bank, addressed relative to the memory directory. Paths that resolve outside the memory directory are rejected.",
		Example: "  membank show USER.md\n  membank show GLOBAL_DAILY_LOG.md\n  membank show workflows/api/SPRINT_12.md",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBank()
			if err != nil {
				return err
			}

			resolved, err := project.ResolveContained(b.Path(), args[0])
			if err != nil {
				return err
			}
			content, err := os.ReadFile(resolved)
			if err != nil {
				return fmt.Errorf("cannot read %s: %w", args[0], err)
			}

			if raw {
				fmt.Print(string(content))
				return nil
			}
			ui.RenderMarkdown(string(content))
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the file without markdown rendering")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and edit the retention policy",
	}
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configSetCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the current effective retention policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBank()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(b.Policy)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Print(string(data))
			return nil
		},
	}
}

func configSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a retention policy value",
		Long:  "Set a policy value in memory/config.yaml. Valid keys: log_retention_days, archive_completed_sprints, warn_tier1_tokens, warn_log_lines.",
		Example: `  membank config set log_retention_days 30
  membank config set archive_completed_sprints false`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBank()
			if err != nil {
				return err
			}
			if err := b.SetPolicyValue(args[0], args[1]); err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Set %s = %s", args[0], args[1]))
			return nil
		},
	}
}

func mcpServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "mcp-serve",
		Short:  "Run membank as an MCP server",
		Long:   "Start membank as a Model Context Protocol (MCP) server over stdio. This lets coding agents inspect, archive, and append to the memory bank directly.",
		Hidden: true, // Not typically called directly by users
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBank()
			if err != nil {
				return err
			}

			server := membankmcp.NewServer(b, version)
			return server.Run(context.Background())
		},
	}
}

func completionCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "completion [bash|zsh|fish]",
		Short:     "Generate shell completion scripts",
		Long:      "Generate shell completion scripts for bash, zsh, or fish. Output the script to stdout for sourcing in your shell profile.",
		Example:   "  membank completion bash > ~/.bashrc.d/membank\n  membank completion zsh > ~/.zfunc/_membank\n  membank completion fish > ~/.config/fish/completions/membank.fish",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish"},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			default:
				return fmt.Errorf("unsupported shell: %s (use bash, zsh, or fish)", args[0])
			}
		},
	}
}
