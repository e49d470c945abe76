package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"live-quiz-service/internal/config"
	"live-quiz-service/internal/watcher"
)

// NewWatchCmd follows a running server and prints a projector view on every change.
func NewWatchCmd(configPath *string) *cobra.Command {
	var serverURL string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a running quiz server from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), *configPath, serverURL)
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "server base url (overrides watch.server_url)")
	return cmd
}

func runWatch(ctx context.Context, configPath, serverURL string) error {
	cfg, err := config.LoadOptional(configPath)
	if err != nil {
		return err
	}
	setupLogging(cfg)
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if serverURL == "" {
		serverURL = cfg.Watch.ServerURL
	}
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}

	w, err := watcher.New(watcher.Config{
		ServerURL:      serverURL,
		PollInterval:   config.TTLDuration(cfg.Watch.PollInterval, watcher.DefaultPollInterval),
		ReconnectDelay: config.TTLDuration(cfg.Watch.ReconnectDelay, watcher.DefaultReconnectDelay),
		Out:            os.Stdout,
	})
	if err != nil {
		return err
	}
	return w.Run(ctx)
}
