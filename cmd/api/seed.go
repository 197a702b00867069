package main

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/medicapp/backend/internal/domain/entities"
	"github.com/medicapp/backend/internal/infrastructure/observability"
	"github.com/spf13/cobra"
)

//go:embed seeddata/providers.json
var seedFiles embed.FS

func loadSeedProviders() ([]*entities.Provider, error) {
	data, err := seedFiles.ReadFile("seeddata/providers.json")
	if err != nil {
		return nil, err
	}
	var providers []*entities.Provider
	if err := json.Unmarshal(data, &providers); err != nil {
		return nil, fmt.Errorf("invalid seed data: %w", err)
	}
	return providers, nil
}

func seedCmd() *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load sample providers for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := observability.GetLogger()
			ctx := cmd.Context()

			seed, err := loadSeedProviders()
			if err != nil {
				return err
			}

			a, err := newApp(ctx, cfg, appOptions{migrate: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if reset {
				logger.Warn().Msg("--reset given, truncating providers before seeding")
				if _, err := a.pgClient.DB().ExecContext(ctx, `TRUNCATE TABLE providers`); err != nil {
					return fmt.Errorf("failed to reset providers: %w", err)
				}
			}

			created := 0
			for _, p := range seed {
				if _, err := a.providers.Create(ctx, p); err != nil {
					logger.Warn().Err(err).Str("name", p.Name).Msg("failed to seed provider")
					continue
				}
				created++
			}
			logger.Info().Int("created", created).Int("total", len(seed)).Msg("seeding complete")
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "truncate the providers table first")
	return cmd
}
