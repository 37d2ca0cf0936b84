package main

import (
	"fmt"
	"os"

	"querychat/internal/answer"
	"querychat/internal/config"
	"querychat/internal/export"
	"querychat/internal/logging"
	"querychat/internal/prefs"
	"querychat/internal/session"
	"querychat/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	// A missing .env is normal.
	_ = godotenv.Load()

	var cfgPath string
	if p, err := config.DefaultFilePath(); err == nil {
		cfgPath = p
	}
	cfg, loadErr := config.Load(cfgPath)

	cmd := &cobra.Command{
		Use:          "querychat",
		Short:        "Ask questions about your database from the terminal",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if loadErr != nil {
				return loadErr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cfg)
		},
	}
	config.BindFlags(cmd.Flags(), &cfg)
	return cmd
}

func run(cfg config.AppConfig) error {
	log, closer, err := logging.New(logging.Options{
		Path:      cfg.LogPath,
		Level:     cfg.LogLevel,
		SessionID: uuid.NewString(),
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	var store prefs.Store = prefs.NewMemoryStore()
	if !cfg.NoPersist {
		s, err := prefs.Open(cfg.StatePath)
		if err != nil {
			return err
		}
		defer s.Close()
		store = s
	}

	exp, err := export.New(cfg.ExportDir)
	if err != nil {
		return err
	}

	client := answer.NewClient(cfg.Endpoint, answer.WithTimeout(cfg.Timeout))
	chat := session.New(client, store, log)
	log.Info().Str("endpoint", client.Endpoint()).Bool("dark", chat.DarkMode()).Msg("session started")

	model := ui.NewModel(chat, ui.Options{
		Endpoint: client.Endpoint(),
		Exporter: exp,
		Logger:   log,
	})
	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion()).Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	log.Info().Int("messages", chat.Len()).Msg("session ended")
	return nil
}
