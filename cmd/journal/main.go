package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/pbaille/journal/internal/api"
	"github.com/pbaille/journal/internal/classifier"
	"github.com/pbaille/journal/internal/client"
	"github.com/pbaille/journal/internal/config"
	"github.com/pbaille/journal/internal/domain"
	"github.com/pbaille/journal/internal/logging"
	"github.com/pbaille/journal/internal/store"
	"github.com/pbaille/journal/internal/thoughts"
	"github.com/pbaille/journal/internal/tui"
	"github.com/pbaille/journal/internal/web"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	dbPath  string
	verbose bool

	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "journal",
		Short:         "Journal of thoughts tagged with competencies",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.DBPath = dbPath
			}
			logger, err = logging.New(verbose)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default $JOURNAL_DB or ~/.journal/journal.db)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(editCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(competenciesCmd())
	rootCmd.AddCommand(thoughtsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func getStore() (*store.Store, error) {
	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	return store.New(cfg.DBPath)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid entry id: %s", raw)
	}
	return id, nil
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and the thoughts page",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}

			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			opts := []api.Option{api.WithPages(web.NewHandler(s, loc, logger))}
			if clf, err := classifier.New(cfg.AnthropicAPIKey, cfg.ClassifierModel); err == nil {
				opts = append(opts, api.WithSuggester(clf))
			} else {
				logger.Info("competency suggestions disabled", zap.Error(err))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return api.New(s, cfg.Addr, logger, opts...).Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "server address")
	return cmd
}

func addCmd() *cobra.Command {
	var (
		competencyIDs []int64
		suggest       bool
	)

	cmd := &cobra.Command{
		Use:   "add [text]",
		Short: "Add a new thought",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			ctx := cmd.Context()

			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			if suggest && len(competencyIDs) == 0 {
				competencyIDs = suggestCompetencies(ctx, s, text)
			}

			entry, err := s.AddEntry(ctx, text, competencyIDs)
			if err != nil {
				return err
			}

			fmt.Printf("Added thought #%d\n", entry.ID)
			fmt.Printf("Text: %s\n", thoughts.Truncate(entry.Text, 80))
			if len(entry.Competencies) > 0 {
				catalog, err := s.ListCompetencies(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Competencies: %s\n", strings.Join(labels(catalog, entry.Competencies), ", "))
			}
			return nil
		},
	}

	cmd.Flags().Int64SliceVarP(&competencyIDs, "competency", "c", nil, "competency id (repeatable)")
	cmd.Flags().BoolVar(&suggest, "suggest", false, "let the classifier pick competencies")
	return cmd
}

// suggestCompetencies asks the classifier for ids. Failures are reported and
// the thought is saved without competencies.
func suggestCompetencies(ctx context.Context, s *store.Store, text string) []int64 {
	clf, err := classifier.New(cfg.AnthropicAPIKey, cfg.ClassifierModel)
	if err != nil {
		fmt.Printf("(suggestions skipped: %v)\n", err)
		return nil
	}

	catalog, err := s.ListCompetencies(ctx)
	if err != nil {
		fmt.Printf("(suggestions skipped: %v)\n", err)
		return nil
	}

	fmt.Print("Suggesting competencies... ")
	suggestions, err := clf.Suggest(ctx, text, catalog)
	if err != nil {
		fmt.Printf("failed: %v\n", err)
		logger.Warn("suggest competencies", zap.Error(err))
		return nil
	}
	fmt.Println("done")

	for _, sg := range suggestions {
		fmt.Printf("  + %s (%.2f)\n", sg.Skill, sg.Confidence)
	}
	return classifier.IDs(suggestions)
}

func listCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List thoughts, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			entries, err := s.ListEntries(cmd.Context(), limit, 0)
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Println(thoughts.EmptyPlaceholder)
				return nil
			}

			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Printf("#%-4d %s  %s\n", e.ID, thoughts.FormatTime(e.CreatedAt, loc), thoughts.Truncate(e.Text, 60))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of thoughts to show (0 for all)")
	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show one thought",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}

			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			entry, err := s.GetEntry(cmd.Context(), id)
			if err != nil {
				return err
			}

			fmt.Printf("ID:      %d\n", entry.ID)
			fmt.Printf("Created: %s\n", thoughts.FormatTime(entry.CreatedAt, loc))
			fmt.Printf("Text:\n%s\n", entry.Text)

			if len(entry.Competencies) > 0 {
				catalog, err := s.ListCompetencies(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("\nCompetencies:\n")
				for _, label := range labels(catalog, entry.Competencies) {
					fmt.Printf("  - %s\n", label)
				}
			}
			return nil
		},
	}
}

func editCmd() *cobra.Command {
	var competencyIDs []int64

	cmd := &cobra.Command{
		Use:   "edit [id] [text]",
		Short: "Rewrite a thought",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ids := competencyIDs
			if !cmd.Flags().Changed("competency") {
				current, err := s.GetEntry(cmd.Context(), id)
				if err != nil {
					return err
				}
				ids = current.Competencies
			}

			entry, err := s.UpdateEntry(cmd.Context(), id, strings.Join(args[1:], " "), ids)
			if err != nil {
				return err
			}
			fmt.Printf("Updated thought #%d\n", entry.ID)
			return nil
		},
	}

	cmd.Flags().Int64SliceVarP(&competencyIDs, "competency", "c", nil, "replace competencies (repeatable)")
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a thought",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.DeleteEntry(cmd.Context(), id); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("thought #%d not found", id)
				}
				return err
			}
			fmt.Printf("Deleted thought #%d\n", id)
			return nil
		},
	}
}

func competenciesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "competencies",
		Short: "List the competency catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			catalog, err := s.ListCompetencies(cmd.Context())
			if err != nil {
				return err
			}

			for _, c := range catalog {
				fmt.Printf("%3d  %-18s %s\n", c.ID, c.Skill, c.Description)
			}
			return nil
		},
	}
}

func thoughtsCmd() *cobra.Command {
	var apiURL string

	cmd := &cobra.Command{
		Use:   "thoughts",
		Short: "Browse thoughts in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("api") {
				cfg.APIURL = apiURL
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}

			// stdout belongs to the terminal UI
			pageLogger, err := logging.NewFile(cfg.LogFile, verbose)
			if err != nil {
				return err
			}
			defer pageLogger.Sync()

			backend := client.New(cfg.APIURL,
				client.WithTimeout(cfg.HTTPTimeout),
				client.WithCompetencyTTL(cfg.CompetencyTTL),
			)
			return tui.Run(tui.New(backend, loc, cfg.HTTPTimeout, pageLogger))
		},
	}

	cmd.Flags().StringVar(&apiURL, "api", "http://localhost:8080", "journal API base URL")
	return cmd
}

func labels(catalog []domain.Competency, ids []int64) []string {
	list := thoughts.List{Competencies: catalog}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = list.Label(id)
	}
	return out
}
