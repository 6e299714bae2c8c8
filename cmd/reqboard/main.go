package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/h0rv/reqboard/internal/auth"
	"github.com/h0rv/reqboard/internal/config"
	"github.com/h0rv/reqboard/internal/domain"
	"github.com/h0rv/reqboard/internal/gateway"
	"github.com/h0rv/reqboard/internal/notify"
	"github.com/h0rv/reqboard/internal/store"
	"github.com/h0rv/reqboard/internal/tui"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
)

var (
	// CLI flags
	configFlag         string
	baseURLFlag        string
	projectFlag        string
	notifyFailuresFlag bool

	cfg *config.Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "reqboard",
		Short: "Terminal kanban board for project requirements",
		Long: `reqboard shows the requirements of one project as a kanban board.

Drag a card to another column with the mouse to change its status. The change
is sent to the requirements service and the board reloads.

Authentication (first match wins):
  1. Environment variables: REQBOARD_USERNAME and REQBOARD_PASSWORD
  2. Config file: username and password in reqboard.yml`,
		PersistentPreRunE: loadConfig,
		RunE:              run,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default reqboard.yml if present)")
	rootCmd.PersistentFlags().StringVar(&baseURLFlag, "base-url", "", "Requirements service address, e.g. http://localhost:5000")
	rootCmd.PersistentFlags().StringVar(&projectFlag, "project", "", "Project id. Skips the project picker.")
	rootCmd.Flags().BoolVar(&notifyFailuresFlag, "notify-failures", false, "Show a notification when a status change fails")

	rootCmd.AddCommand(newMoveCmd(), newListCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config and applies flags on top.
func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(configFlag)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("base-url") {
		c.BaseURL = strings.TrimRight(baseURLFlag, "/")
	}
	if cmd.Flags().Changed("project") {
		c.ProjectID = strings.TrimSpace(projectFlag)
	}
	if f := cmd.Flags().Lookup("notify-failures"); f != nil && f.Changed {
		c.NotifyFailures = notifyFailuresFlag
	}
	cfg = c
	return nil
}

func run(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// A TUI cannot log to the terminal it draws on
	logger := log.New(io.Discard, "", 0)
	if cfg.LogFile != "" {
		f, err := tea.LogToFile(cfg.LogFile, "reqboard")
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		logger = log.Default()
	}

	client, err := newClient()
	if err != nil {
		return err
	}

	s, err := store.New(cfg.Statuses())
	if err != nil {
		return err
	}
	if cfg.ProjectID != "" {
		s.SetProject(cfg.ProjectID)
	}

	labels := make(map[domain.Status]string, len(cfg.Columns))
	for _, col := range cfg.Columns {
		labels[domain.Status(col.Status)] = col.Label
	}
	projects := make([]tui.Project, 0, len(cfg.Projects))
	for _, p := range cfg.Projects {
		projects = append(projects, tui.Project{ID: p.ID, Name: p.Name})
	}

	ctx := context.Background()
	scheduler := notify.TickScheduler{}

	app := tui.NewAppModel(ctx, tui.AppDeps{
		Service:        client,
		Store:          s,
		Presenter:      notify.New(scheduler),
		Scheduler:      scheduler,
		Logger:         logger,
		Labels:         labels,
		NotifyFailures: cfg.NotifyFailures,
		OpenURL:        browser.OpenURL,
		Projects:       projects,
		Login: func(ctx context.Context) error {
			return login(ctx, client)
		},
	})

	// Cell motion reports mouse movement while a button is held, which is
	// what dragging needs.
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("program error: %w", err)
	}

	return nil
}

func newMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <requirement-id> <status>",
		Short: "Change the status of one requirement without the board",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := domain.TransitionRequest{CardID: args[0], TargetStatus: domain.Status(args[1])}
			if err := req.Validate(); err != nil {
				return err
			}
			client, err := signedInClient(cmd.Context())
			if err != nil {
				return err
			}

			result, err := client.UpdateStatus(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("failed to update requirement %s: %w", req.CardID, err)
			}
			if !result.Success {
				if result.Error != "" {
					return fmt.Errorf("requirement %s was not updated: %s", req.CardID, result.Error)
				}
				return fmt.Errorf("requirement %s was not updated", req.CardID)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "requirement %s -> %s\n", req.CardID, cfg.Label(req.TargetStatus))
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the board as text, one column per block",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if cfg.ProjectID == "" {
				return fmt.Errorf("--project is required when several projects are configured")
			}
			client, err := signedInClient(cmd.Context())
			if err != nil {
				return err
			}

			reqs, err := client.ListRequirements(cmd.Context(), cfg.ProjectID)
			if err != nil {
				return err
			}
			s, err := store.New(cfg.Statuses())
			if err != nil {
				return err
			}
			s.SetProject(cfg.ProjectID)
			s.Replace(reqs)

			out := cmd.OutOrStdout()
			for _, status := range s.Columns() {
				ids := s.ColumnIDs(status)
				fmt.Fprintf(out, "%s (%d)\n", cfg.Label(status), len(ids))
				for _, id := range ids {
					req, err := s.Get(id)
					if err != nil {
						continue
					}
					fmt.Fprintf(out, "  #%s %s\n", req.ID, req.Title)
				}
			}
			if unplaced := s.Unplaced(); len(unplaced) > 0 {
				fmt.Fprintf(out, "not on this board: %s\n", strings.Join(unplaced, ", "))
			}
			return nil
		},
	}
}

func newClient() (*gateway.Client, error) {
	client, err := gateway.New(cfg.BaseURL, gateway.WithTimeout(cfg.HTTPTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

func signedInClient(ctx context.Context) (*gateway.Client, error) {
	if err := cfg.ValidateService(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	if err := login(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

// login signs client in with credentials from the environment or the config
// file, in that order.
func login(ctx context.Context, client *gateway.Client) error {
	creds, err := auth.Resolve(
		auth.EnvProvider{},
		auth.StaticProvider{Creds: auth.Credentials{Username: cfg.Username, Password: cfg.Password}},
	)
	if err != nil {
		return err
	}
	return auth.Login(ctx, client.HTTPClient(), cfg.LoginURL(), creds)
}
