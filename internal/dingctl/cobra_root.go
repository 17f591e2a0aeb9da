package dingctl

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// Config holds the persistent flags shared by every subcommand.
type Config struct {
	URL     string
	LogLvl  string
	Timeout time.Duration
}

// Execute runs the command tree against os.Args.
func Execute() error {
	cfg := &Config{
		URL:     envStr("DINGCTL_URL", "http://127.0.0.1:8080"),
		LogLvl:  envStr("DINGCTL_LOG_LEVEL", "info"),
		Timeout: 30 * time.Second,
	}
	return buildRootCmdWith(cfg, os.Stdout).Execute()
}

func buildRootCmdWith(cfg *Config, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "dingctl",
		Short:         "Send simulated DingTalk callbacks to a running dingd",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&cfg.URL, "url", cfg.URL, "dingd base URL (defaults DINGCTL_URL)")
	root.PersistentFlags().StringVar(&cfg.LogLvl, "log-level", cfg.LogLvl, "Log level: debug|info|warn|error")
	root.PersistentFlags().DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-command timeout")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		SetLogLevel(cfg.LogLvl)
	}

	withClient := func(fn func(ctx context.Context, c *Client) error) error {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()
		return fn(ctx, NewClient(cfg.URL))
	}

	var sender, msgID string
	robotCmd := &cobra.Command{
		Use:     "robot <app> <text...>",
		Short:   "Post a robot message callback",
		Example: "  dingctl robot helpdesk /help\n  dingctl robot helpdesk ping --sender u42",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args[1:], " ")
			return withClient(func(ctx context.Context, c *Client) error {
				log.Debug().Str("app", args[0]).Str("text", text).Msg("robot")
				res, err := c.Robot(ctx, args[0], text, sender, msgID)
				if err != nil {
					return err
				}
				if res.Duplicate {
					fmt.Fprintln(out, "duplicate")
					return nil
				}
				fmt.Fprintf(out, "dispatch=%s matched=%d sent=%d failed=%d\n", res.DispatchID, res.Matched, res.Sent, res.Failed)
				return nil
			})
		},
	}
	robotCmd.Flags().StringVar(&sender, "sender", "dingctl", "Sender staff ID")
	robotCmd.Flags().StringVar(&msgID, "msg-id", "", "Message ID (random when empty)")

	eventCmd := &cobra.Command{
		Use:     "event <app> <code> [key=value...]",
		Short:   "Post a mini-app event callback",
		Example: "  dingctl event oa approval_finish instance=42 result=agree",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parseData(args[2:])
			if err != nil {
				return err
			}
			return withClient(func(ctx context.Context, c *Client) error {
				res, err := c.Event(ctx, args[0], args[1], data)
				if err != nil {
					return err
				}
				if res.Duplicate {
					fmt.Fprintln(out, "duplicate")
					return nil
				}
				fmt.Fprintf(out, "accepted dispatch=%s\n", res.DispatchID)
				return nil
			})
		},
	}

	handlersCmd := &cobra.Command{
		Use:   "handlers",
		Short: "List handlers registered on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, c *Client) error {
				res, err := c.Handlers(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				for _, h := range res.Chat {
					fmt.Fprintf(tw, "chat\t%s\tpriority=%d\t%s\n", h.Name, h.Order, h.Description)
				}
				for _, h := range res.Events {
					fmt.Fprintf(tw, "event\t%s\tlevel=%d\t%s\n", h.Name, h.Order, h.Description)
				}
				return tw.Flush()
			})
		},
	}

	appsCmd := &cobra.Command{
		Use:   "apps",
		Short: "List configured apps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, c *Client) error {
				res, err := c.Apps(ctx)
				if err != nil {
					return err
				}
				for _, a := range res.Apps {
					fmt.Fprintf(out, "%s\t%s\t%s\n", a.Key, a.Type, a.Name)
				}
				return nil
			})
		},
	}

	var path string
	var every time.Duration
	waitCmd := &cobra.Command{
		Use:   "wait",
		Short: "Block until the server answers 200",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, c *Client) error {
				if err := c.Wait(ctx, path, every); err != nil {
					return err
				}
				log.Info().Str("url", c.BaseURL+path).Msg("ready")
				return nil
			})
		},
	}
	waitCmd.Flags().StringVar(&path, "path", "/readyz", "Path to poll")
	waitCmd.Flags().DurationVar(&every, "every", time.Second, "Poll interval")

	root.AddCommand(robotCmd, eventCmd, handlersCmd, appsCmd, waitCmd)

	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(out) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(out) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(out, true) }})
	root.AddCommand(completionCmd)

	return root
}

// parseData turns key=value pairs into an event data map.
func parseData(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	data := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("bad data %q, want key=value", p)
		}
		data[k] = v
	}
	return data, nil
}
