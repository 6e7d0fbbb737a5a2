package commands

import (
	"context"
	"fmt"
	"strings"

	"routine_notification_bot/internal/app"
	"routine_notification_bot/internal/domain/schedule"
	"routine_notification_bot/internal/infra/cache"
	"routine_notification_bot/internal/infra/config"
	idb "routine_notification_bot/internal/infra/database"
	"routine_notification_bot/internal/infra/logger"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

// SeedFile is the TOML layout read by seed-settings. Without companies the
// defaults are applied to every company in the directory.
type SeedFile struct {
	Cron          string        `toml:"cron"`
	DisabledTeams []string      `toml:"disabled_teams"`
	Companies     []CompanySeed `toml:"company"`
}

type CompanySeed struct {
	ID            string   `toml:"id"`
	Cron          string   `toml:"cron"`
	DisabledTeams []string `toml:"disabled_teams"`
}

func loadSeedFile(path string) (SeedFile, error) {
	var seed SeedFile
	md, err := toml.DecodeFile(path, &seed)
	if err != nil {
		return SeedFile{}, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return SeedFile{}, fmt.Errorf("unknown keys in seed file %s: %s", path, strings.Join(keys, ", "))
	}
	if seed.Cron == "" {
		seed.Cron = "0 0 * * 5"
	}
	for i, c := range seed.Companies {
		if c.ID == "" {
			return SeedFile{}, fmt.Errorf("company #%d in %s has no id", i+1, path)
		}
	}
	return seed, nil
}

// openSettings connects to the configured database. Tests replace it.
var openSettings = func(ctx context.Context) (app.SettingsService, func(), error) {
	cfg, err := config.Load(false)
	if err != nil {
		return nil, nil, err
	}
	logger.Init(cfg)
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := idb.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	dir := cache.NewDirectory(idb.NewPostgresDirectoryRepository(db), cfg.DirectoryCacheTTL)
	svc := app.NewSettingsServiceImpl(idb.NewPostgresSettingsRepository(db), dir, nil, schedule.SystemClock{}, logger.Component("routinectl"))
	return svc, func() { db.Close() }, nil
}

func seedSettings(ctx context.Context, svc app.SettingsService, seed SeedFile) (int, error) {
	if len(seed.Companies) == 0 {
		return svc.SeedAllCompanies(ctx, seed.Cron, nonNil(seed.DisabledTeams))
	}
	for _, c := range seed.Companies {
		cron := c.Cron
		if cron == "" {
			cron = seed.Cron
		}
		disabled := c.DisabledTeams
		if disabled == nil {
			disabled = seed.DisabledTeams
		}
		if _, err := svc.CreateSettings(ctx, c.ID, cron, nonNil(disabled)); err != nil {
			return 0, fmt.Errorf("seeding company %s: %w", c.ID, err)
		}
	}
	return len(seed.Companies), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func SeedSettingsCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed-settings",
		Short: "Create or update routine settings from a TOML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := loadSeedFile(file)
			if err != nil {
				return err
			}
			svc, closeFn, err := openSettings(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			n, err := seedSettings(cmd.Context(), svc, seed)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d companies\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "routines.toml", "Seed file")
	return cmd
}
