package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	log "github.com/charmbracelet/log/v2"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/charmbracelet/vgrid"
	"github.com/charmbracelet/vgrid/internal/tui"
	"github.com/charmbracelet/vgrid/internal/version"
	"github.com/charmbracelet/vgrid/pager/sqlitesource"
)

func init() {
	rootCmd.Flags().StringP("db", "D", "", "Path to the items database (default: a file under the user cache dir)")
	rootCmd.Flags().IntP("items", "n", 10000, "Number of demo items to seed into an empty database")
	rootCmd.Flags().IntP("page-size", "p", 50, "Items per fetched page")
	rootCmd.Flags().Duration("debounce", 120*time.Millisecond, "Debounce applied to page resolution (0 disables)")
	rootCmd.Flags().BoolP("debug", "d", false, "Write debug logs to vgrid.log")
}

var rootCmd = &cobra.Command{
	Use:   "vgrid",
	Short: "Virtualized grid demo over a lazily-paged SQLite collection",
	Long: `vgrid renders a large item collection as a scrollable grid while keeping
only a small window of items resident. Pages are fetched from SQLite on
demand as you scroll; cells whose page has not arrived yet render as
placeholders.`,
	Example: `
# Scroll through ten thousand lazily-paged items
vgrid

# A bigger dataset with smaller pages and no fetch debounce
vgrid -n 100000 -p 25 --debounce 0

# Keep the database somewhere specific and log engine activity
vgrid -D /tmp/vgrid.db -d
  `,
	RunE: func(cmd *cobra.Command, args []string) error {
		debug, _ := cmd.Flags().GetBool("debug")
		setupLogging(debug)

		dbPath, _ := cmd.Flags().GetString("db")
		if dbPath == "" {
			cacheDir, err := os.UserCacheDir()
			if err != nil {
				return fmt.Errorf("resolve cache dir: %w", err)
			}
			dir := filepath.Join(cacheDir, "vgrid")
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create data dir: %w", err)
			}
			dbPath = filepath.Join(dir, "vgrid.db")
		}

		items, _ := cmd.Flags().GetInt("items")
		pageSize, _ := cmd.Flags().GetInt("page-size")
		debounce, _ := cmd.Flags().GetDuration("debounce")

		source, err := sqlitesource.Open(cmd.Context(), dbPath)
		if err != nil {
			return err
		}
		defer source.Close()

		if _, err := source.Seed(cmd.Context(), items); err != nil {
			return err
		}
		total, err := source.Count(cmd.Context())
		if err != nil {
			return err
		}

		probe := tui.NewProbe()
		engine := vgrid.New[sqlitesource.Item](probe, source,
			vgrid.WithTotal(total),
			vgrid.WithPageSize(pageSize),
			vgrid.WithDebounce(debounce),
		)
		defer engine.Close()

		program := tea.NewProgram(
			tui.New(engine, probe, total),
			tea.WithContext(cmd.Context()),
		)
		go tui.Subscribe(cmd.Context(), engine, program)

		if _, err := program.Run(); err != nil {
			slog.Error("TUI run error", "error", err)
			return fmt.Errorf("TUI error: %w", err)
		}
		return nil
	},
}

func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(version.Version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

// setupLogging routes slog through a rotating file in debug mode and
// discards it otherwise, so engine logging never corrupts the TUI.
func setupLogging(debug bool) {
	if !debug {
		slog.SetDefault(slog.New(slog.DiscardHandler))
		return
	}
	logger := log.NewWithOptions(&lumberjack.Logger{
		Filename:   "vgrid.log",
		MaxSize:    10, // MB
		MaxBackups: 3,
	}, log.Options{
		ReportTimestamp: true,
		Level:           log.DebugLevel,
	})
	slog.SetDefault(slog.New(logger))
}
