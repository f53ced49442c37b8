// Package setup provides the data-management subcommands for the MCP
// server binary: inspecting the local data directory and moving
// assessment history between instances as JSON.
package setup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mr-gorsky/tear-film-analyzer/internal/config"
	"github.com/mr-gorsky/tear-film-analyzer/internal/history"
)

// CLI executes data-management commands against the local history store.
type CLI struct {
	cfg *config.LiteConfig
}

// NewCLI creates a new data CLI instance.
func NewCLI(cfg *config.LiteConfig) *CLI {
	return &CLI{cfg: cfg}
}

// Run executes the data command based on the provided arguments.
func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return c.showHelp()
	}

	switch args[0] {
	case "status":
		return c.showStatus(ctx)
	case "export":
		return c.export(ctx, args[1:])
	case "import":
		return c.importRecords(ctx, args[1:])
	case "help", "--help", "-h":
		return c.showHelp()
	default:
		fmt.Printf("Unknown command: %s\n\n", args[0])
		return c.showHelp()
	}
}

// showHelp displays usage information.
func (c *CLI) showHelp() error {
	help := `
Tear Film Analyzer data management

Usage:
  mcp-server data <command> [options]

Commands:
  status   Show the data directory and stored assessment count
  export   Export assessment history to a JSON file
  import   Import assessment history from a JSON file

Examples:
  # Show where history lives and how many assessments are stored
  mcp-server data status

  # Export all assessments to the export directory
  mcp-server data export

  # Export to a specific file
  mcp-server data export /tmp/assessments.json

  # Import assessments, skipping exam IDs that already exist
  mcp-server data import /tmp/assessments.json
`
	fmt.Println(help)
	return nil
}

func (c *CLI) openStore() (history.Store, error) {
	if err := c.cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return history.NewSQLiteStore(c.cfg.HistoryDBPath())
}

func (c *CLI) showStatus(ctx context.Context) error {
	store, err := c.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	count, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting assessments: %w", err)
	}

	fmt.Printf("Data directory:  %s\n", c.cfg.DataDir)
	fmt.Printf("History store:   %s\n", c.cfg.HistoryDBPath())
	fmt.Printf("Assessments:     %d\n", count)
	return nil
}

func (c *CLI) export(ctx context.Context, args []string) error {
	path := ""
	if len(args) > 0 {
		path = args[0]
	} else {
		if err := os.MkdirAll(c.cfg.ExportDir(), 0o755); err != nil {
			return fmt.Errorf("creating export directory: %w", err)
		}
		name := fmt.Sprintf("assessments-%s.json", time.Now().Format("20060102-150405"))
		path = filepath.Join(c.cfg.ExportDir(), name)
	}

	store, err := c.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer file.Close()

	if err := store.ExportJSON(ctx, file); err != nil {
		return fmt.Errorf("exporting assessments: %w", err)
	}

	fmt.Printf("Exported assessment history to %s\n", path)
	return nil
}

func (c *CLI) importRecords(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("import requires a file path")
	}

	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening import file: %w", err)
	}
	defer file.Close()

	store, err := c.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	imported, skipped, err := store.ImportJSON(ctx, file)
	if err != nil {
		return fmt.Errorf("importing assessments: %w", err)
	}

	fmt.Printf("Imported %d assessments, skipped %d existing\n", imported, skipped)
	return nil
}
