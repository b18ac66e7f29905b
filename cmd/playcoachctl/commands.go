package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/johnquangdev/playcoach/internal/adapter/repository"
	"github.com/johnquangdev/playcoach/internal/app"
	"github.com/johnquangdev/playcoach/internal/infrastructure/database"
	"github.com/johnquangdev/playcoach/internal/usecase/aggregate"
	"github.com/johnquangdev/playcoach/pkg/config"
	"github.com/johnquangdev/playcoach/pkg/jwt"
)

// cliEnv is shared by every subcommand
type cliEnv struct {
	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	env := &cliEnv{}

	root := &cobra.Command{
		Use:           "playcoachctl",
		Short:         "Operate the play-session analysis pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger, err := zap.NewDevelopment()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			env.cfg = cfg
			env.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if env.logger != nil {
				_ = env.logger.Sync()
			}
		},
	}

	root.AddCommand(
		newProcessCmd(env),
		newWeeklyCmd(env),
		newMigrateCmd(env),
		newTokenCmd(env),
	)
	return root
}

func newProcessCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "process <recording-id>",
		Short: "Run the full analysis of one recording inline, with retries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid recording id %q: %w", args[0], err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			container, err := app.Build(ctx, env.cfg, env.logger)
			if err != nil {
				return err
			}
			defer container.Close()

			if err := container.Orchestrator.Process(ctx, id); err != nil {
				return fmt.Errorf("failed to process recording: %w", err)
			}

			rec, err := container.Recordings.FindByID(context.Background(), id)
			if err != nil {
				return fmt.Errorf("failed to reload recording: %w", err)
			}
			if rec == nil {
				return fmt.Errorf("recording %s disappeared", id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s retry_count=%d\n", rec.ID, rec.AnalysisStatus, rec.RetryCount)
			if rec.AnalysisResult != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "score=%d strategy=%s\n", rec.AnalysisResult.OverallScore, rec.AnalysisResult.ScoringStrategy)
			}
			return nil
		},
	}
}

func newWeeklyCmd(env *cliEnv) *cobra.Command {
	var (
		userArg string
		weekArg string
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "weekly",
		Short: "Export a user's weekly progress report to xlsx",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(userArg)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}
			weekStart, err := time.Parse(time.DateOnly, weekArg)
			if err != nil {
				return fmt.Errorf("invalid --week, expected YYYY-MM-DD: %w", err)
			}

			db, err := database.NewPostgresDB(env.cfg)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer database.CloseDB(db)

			aggregator := aggregate.NewAggregator(repository.NewRecordingRepository(db), env.logger)
			report, err := aggregator.WeeklyReport(cmd.Context(), userID, weekStart)
			if err != nil {
				return err
			}

			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", outPath, err)
			}
			if err := aggregate.WriteXLSX(report, f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write %s: %w", outPath, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d session(s), average %.1f\n",
				outPath, report.Current.Sessions, report.Current.AverageScore)
			return nil
		},
	}

	cmd.Flags().StringVar(&userArg, "user", "", "user id (UUID)")
	cmd.Flags().StringVar(&weekArg, "week", "", "week start date, YYYY-MM-DD")
	cmd.Flags().StringVar(&outPath, "out", "weekly-report.xlsx", "output file")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("week")
	return cmd
}

func newMigrateCmd(env *cliEnv) *cobra.Command {
	var (
		dir  string
		down bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply SQL migrations, or roll back the latest one with --down",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.NewPostgresDB(env.cfg)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer database.CloseDB(db)

			n, err := database.Migrate(db, dir, down)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d migration(s) %s\n", n, map[bool]string{false: "applied", true: "rolled back"}[down])
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", database.DefaultMigrationsDir, "migrations directory")
	cmd.Flags().BoolVar(&down, "down", false, "roll back one migration")
	return cmd
}

func newTokenCmd(env *cliEnv) *cobra.Command {
	var (
		service string
		scope   string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a service token for calling the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			m := jwt.NewManager(env.cfg.JWT.ServiceSecret, env.cfg.JWT.Issuer, env.cfg.JWT.TokenExpiry)
			token, err := m.GenerateServiceToken(service, scope)
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&service, "service", "upload-service", "calling service name")
	cmd.Flags().StringVar(&scope, "scope", jwt.ScopeTriggerAnalysis, "granted scope")
	return cmd
}
