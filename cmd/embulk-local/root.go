package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"embulkshim/internal/app"
	"embulkshim/internal/config"
	"embulkshim/internal/invocation"

	"github.com/spf13/cobra"
)

type invoker interface {
	Handle(ctx context.Context, event map[string]any) (invocation.Response, error)
}

type deps struct {
	openHandler func(envFile string) (invoker, io.Closer, error)
	openHistory func(envFile string) (invocation.HistoryStore, io.Closer, error)
}

func defaultDeps() deps {
	open := func(envFile string) (*app.App, error) {
		cfg, err := config.Load(envFile)
		if err != nil {
			return nil, fmt.Errorf("load config failed: %w", err)
		}
		return app.New(cfg, os.Stdout)
	}

	return deps{
		openHandler: func(envFile string) (invoker, io.Closer, error) {
			a, err := open(envFile)
			if err != nil {
				return nil, nil, err
			}
			return a.Handler, a, nil
		},
		openHistory: func(envFile string) (invocation.HistoryStore, io.Closer, error) {
			a, err := open(envFile)
			if err != nil {
				return nil, nil, err
			}
			if a.History == nil {
				_ = a.Close()
				return nil, nil, errors.New("history is disabled, set HISTORY_DB")
			}
			return a.History, a, nil
		},
	}
}

func mustJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("<marshal-error: %v>", err)
	}
	return string(b)
}

func newRootCmd(d deps) *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:   "embulk-local <event-json>",
		Short: "Run the Embulk Lambda handler locally",
		Long: `embulk-local feeds one JSON invocation event to the same handler the
Lambda runtime uses and prints the response envelope.

  embulk-local '{"config_file_name":"sample.yml"}'

Settings are read from .env (or --env-file / $ENV_FILE) and the environment:
  LOG_LEVEL     debug, info, warn or error (default info)
  LOG_FORMAT    text, logfmt or json (default text)
  LOG_FILE      optional file receiving a copy of every log line
  HISTORY_DB    sqlite file recording each invocation (disabled when empty)
  HISTORY_KEEP  number of history rows kept (default 200)`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Fprint(cmd.ErrOrStderr(), cmd.UsageString())
				return &ExitError{Code: 1, Err: errors.New("an invocation event is required as the first argument")}
			}

			var event map[string]any
			if err := json.Unmarshal([]byte(args[0]), &event); err != nil {
				return &ExitError{Code: 1, Err: fmt.Errorf("invalid JSON event: %w", err)}
			}

			handler, closer, err := d.openHandler(envFile)
			if err != nil {
				return &ExitError{Code: 1, Err: err}
			}
			defer closer.Close()

			resp, err := handler.Handle(cmd.Context(), event)
			if err != nil {
				return &ExitError{Code: 1, Err: fmt.Errorf("handler failed: %w", err)}
			}
			fmt.Fprintln(cmd.OutOrStdout(), mustJSON(resp))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "env file to load (default .env, or $ENV_FILE)")

	root.AddCommand(newHistoryCmd(d, &envFile))
	return root
}

func newHistoryCmd(d deps, envFile *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent invocations recorded in HISTORY_DB",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closer, err := d.openHistory(*envFile)
			if err != nil {
				return &ExitError{Code: 1, Err: err}
			}
			defer closer.Close()

			records, err := store.ListRecent(cmd.Context(), limit)
			if err != nil {
				return &ExitError{Code: 1, Err: err}
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCONFIG\tOUTCOME\tEXIT\tSTATUS\tENDED\tDURATION")
			for _, rec := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
					rec.ID,
					rec.ConfigFileName,
					rec.Kind,
					rec.ExitCode,
					rec.StatusCode,
					rec.EndedAt.Format(time.RFC3339),
					rec.Duration().Round(time.Millisecond),
				)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of records to show")
	return cmd
}
