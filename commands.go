package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"campus-pulse/internal/auth"
	commute "campus-pulse/internal/commute/domain"
	"campus-pulse/internal/config"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	ConfigPath string
	Format     string // "json" | "text"
}

var validFormats = []string{"text", "json"}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   serviceName,
		Short: "Campus alerts, forecasts and commute sync",
		Long:  "Serves clock alerts and next-hour forecasts for a campus and keeps commute times in sync with a routing provider.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range validFormats {
				if f == opts.Format {
					return nil
				}
			}
			return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", os.Getenv("CAMPUS_CONFIG"), "YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newSyncCommand(opts))
	cmd.AddCommand(newAlertCommand(opts))
	cmd.AddCommand(newForecastCommand(opts))
	cmd.AddCommand(newTokenCommand(opts))

	return cmd
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "serve",
		Short:        "Run the HTTP API with the alert ticker, forecast poller and sync scheduler",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := loadApp(ctx, opts, true)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.serve(ctx)
		},
	}
}

func newSyncCommand(opts *rootOptions) *cobra.Command {
	var anchors []string
	cmd := &cobra.Command{
		Use:          "sync",
		Short:        "Run one commute sync cycle per anchor",
		Long:         "Runs one commute sync cycle for each --anchor, or for sync.anchors from the config when none is given.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.syncJob == nil {
				return errors.New("commute sync is not configured: GOOGLE_MAPS_API_KEY is required")
			}
			if len(anchors) == 0 {
				anchors = a.cfg.Sync.Anchors
			}
			if len(anchors) == 0 {
				return errors.New("no anchor given: use --anchor or sync.anchors")
			}
			for _, anchorID := range anchors {
				result, err := a.syncJob.SyncAnchor(cmd.Context(), anchorID)
				if err != nil {
					return fmt.Errorf("anchor %s: %w", anchorID, err)
				}
				if err := printResult(cmd.OutOrStdout(), opts.Format, result, syncText(anchorID, result)); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&anchors, "anchor", nil, "anchor (university) id to sync; repeatable")
	return cmd
}

func newAlertCommand(opts *rootOptions) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:          "alert",
		Short:        "Print the clock alert for now or for --at",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			defer a.Close()

			state := a.ticker.Current()
			if at != "" {
				ts, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
				state = a.ticker.At(ts)
			}
			text := fmt.Sprintf("[%s/%s] %s", state.Severity, state.Category, state.Message)
			return printResult(cmd.OutOrStdout(), opts.Format, state, text)
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "RFC3339 instant to evaluate instead of the campus clock")
	return cmd
}

func newForecastCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "forecast",
		Short:        "Refresh the next-hour forecast once and print it",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			defer a.Close()

			snapshot, err := a.forecast.TryRefresh(cmd.Context())
			if err != nil {
				return err
			}
			f := snapshot.Forecast
			text := fmt.Sprintf("[%s/%s] %s (confidence %.2f)", f.Severity, f.Icon, f.Message, f.Confidence)
			if snapshot.Degraded {
				text += " degraded"
			}
			return printResult(cmd.OutOrStdout(), opts.Format, snapshot, text)
		},
	}
}

func newTokenCommand(opts *rootOptions) *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:          "token",
		Short:        "Issue a bearer token signed with AUTH_JWT_SECRET",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(opts.ConfigPath)
			if err != nil {
				return err
			}
			token, err := auth.IssueJWT([]byte(cfg.JWTSecret), subject, auth.Role(role), ttl)
			if err != nil {
				return err
			}
			payload := map[string]string{"token": token}
			return printResult(cmd.OutOrStdout(), opts.Format, payload, token)
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "user id placed in the sub claim")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleViewer), "viewer|operator|admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime; 0 never expires")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func loadApp(ctx context.Context, opts *rootOptions, withStore bool) (*app, error) {
	cfg, err := config.LoadFile(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	a, err := newApp(cfg)
	if err != nil {
		return nil, err
	}
	if withStore {
		if err := a.openStore(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

func printResult(w io.Writer, format string, payload any, text string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

func syncText(anchorID string, result commute.Result) string {
	text := fmt.Sprintf("anchor %s: updated %d/%d places", anchorID, result.Updated, result.TotalPlaces)
	for _, e := range result.Errors {
		text += fmt.Sprintf("\n  %s: %s", e.Place, e.Error)
		if e.Detail != "" {
			text += " (" + e.Detail + ")"
		}
	}
	return text
}
