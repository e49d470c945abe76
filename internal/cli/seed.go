package cli

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/config"
)

// NewSeedCmd inserts the demo questions into an empty catalog.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert demo questions when the catalog is empty",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath)
		},
	}
}

func runSeed(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setupLogging(cfg)
	if ctx == nil {
		ctx = context.Background()
	}

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	if cfg.Postgres.URL == "" {
		log.Warn().Msg("no postgres url configured; seeding the in-memory store has no lasting effect")
	}
	added, err := b.service(app.NopNotifier{}, cfg).Seed(ctx, app.DemoQuizzes())
	if err != nil {
		return err
	}
	log.Info().Int("quizzes", added).Msg("seed finished")
	return nil
}
