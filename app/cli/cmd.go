package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"jobtracker/app/config"
	"jobtracker/app/usecase"
	"jobtracker/internal/infrastructure/store"
)

// Opener builds the job service for one command invocation. The returned
// func releases it.
type Opener func(ctx context.Context, configPath string) (usecase.JobUsecase, func(), error)

// RootCmd is the root Cobra command that gets called from the main func.
// All other sub-commands should be registered here.
func RootCmd(open Opener) *cobra.Command {
	app := &App{Clock: &usecase.DefaultClock{}}
	var (
		configPath string
		release    = func() {}
	)

	cmd := &cobra.Command{
		Use:          "trackerctl",
		Short:        "trackerctl manages tracked job applications.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			jobs, closeFn, err := open(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			app.Jobs = jobs
			app.Out = cmd.OutOrStdout()
			release = closeFn
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "HCL config file (defaults to $"+config.ConfigPathEnv+")")

	cmd.AddCommand(
		addCmd(app),
		listCmd(app),
		deleteCmd(app),
		statusCmd(app),
		sourceCmd(app),
		companyCmd(app),
		timestampCmd(app),
		summaryCmd(app),
		timelineCmd(app),
	)
	// PersistentPostRun is skipped when RunE fails, so release is deferred
	// inside each RunE instead.
	for _, sub := range cmd.Commands() {
		runE := sub.RunE
		sub.RunE = func(cmd *cobra.Command, args []string) error {
			defer func() {
				release()
				release = func() {}
			}()
			return runE(cmd, args)
		}
	}
	return cmd
}

func addCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "add <company> <role> [location] [source]",
		Short: "Record a new application with status Applied",
		Args:  cobra.RangeArgs(2, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			var location, source string
			if len(args) > 2 {
				location = args[2]
			}
			if len(args) > 3 {
				source = args[3]
			}
			return a.Add(cmd.Context(), args[0], args[1], location, source)
		},
	}
}

func listCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List applications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query, _ := cmd.Flags().GetString("query")
			return a.List(cmd.Context(), query)
		},
	}
	cmd.Flags().StringP("query", "q", "", "case-insensitive filter over company, role, status and location")
	return cmd
}

func deleteCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <index>",
		Short: "Delete the application at an index shown by list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid index %q: %w", args[0], err)
			}
			return a.Delete(cmd.Context(), index)
		},
	}
}

func statusCmd(a *App) *cobra.Command {
	return idValueCmd("status <id> <status>", "Set the status of an application", a.UpdateStatus)
}

func sourceCmd(a *App) *cobra.Command {
	return idValueCmd("source <id> <source>", "Set where an application was found", a.UpdateSource)
}

func companyCmd(a *App) *cobra.Command {
	return idValueCmd("company <id> <name>", "Rename the company of an application", a.UpdateCompany)
}

func timestampCmd(a *App) *cobra.Command {
	return idValueCmd("timestamp <id> <time>",
		`Set the application time (RFC 3339 or "YYYY-MM-DD HH:MM:SS" UTC)`, a.UpdateTimestamp)
}

func idValueCmd(use, short string, run func(ctx context.Context, id uint32, value string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}
			return run(cmd.Context(), uint32(id), args[1])
		},
	}
}

func summaryCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print counts per status and the rejection and interview rates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Summary(cmd.Context())
		},
	}
}

func timelineCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "timeline",
		Short: "Print applications per day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Timeline(cmd.Context())
		},
	}
}

// DefaultOpener loads configuration and opens the configured backend.
// Logs go to stderr.
func DefaultOpener(ctx context.Context, configPath string) (usecase.JobUsecase, func(), error) {
	return openWithLogger(ctx, configPath, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))
}

func openWithLogger(ctx context.Context, configPath string, logger *slog.Logger) (usecase.JobUsecase, func(), error) {
	config.LoadDotEnv()
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	repo, closeFn, err := store.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if err := closeFn(context.Background()); err != nil {
			logger.Warn("close repository", "err", err)
		}
	}

	svc, err := usecase.NewJobService(ctx, repo, nil, logger)
	if err != nil {
		release()
		return nil, nil, err
	}
	return svc, release, nil
}
