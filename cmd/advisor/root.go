package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"advisor-backend/internal/analyzer"
	"advisor-backend/internal/catalog"
	"advisor-backend/internal/engine"
	"advisor-backend/internal/recommendations"
	"advisor-backend/internal/shared/config"
	"advisor-backend/internal/shared/storage/db"
	"advisor-backend/internal/shared/telemetry"
)

// cli carries the streams and the lazily built dependencies shared by subcommands.
type cli struct {
	in          io.Reader
	out         io.Writer
	errOut      io.Writer
	cfg         config.Config
	catalogPath string
	logCloser   io.Closer
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	c := &cli{in: in, out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "advisor",
		Short: "Turn plain-language project requirements into a project recommendation",
		Long: `advisor classifies a client's requirement text and recommends a platform,
a feature set, a tech stack, a cost range and a timeline. Vague text gets
clarification questions instead of a guess.

Available commands:
  analyze    - classify requirement text without recommending
  recommend  - produce a recommendation (text, document or batch file)
  catalog    - show or validate the recommendation catalog
  mcp        - serve the advisor as MCP tools over stdio`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			c.cfg = config.Load()
			// stdout is reserved for results, so logs go to stderr unless a log file is set
			if c.cfg.LogFile != "" {
				c.logCloser = telemetry.Configure(telemetry.Options{
					File:       c.cfg.LogFile,
					MaxSizeMB:  c.cfg.LogMaxSizeMB,
					MaxBackups: c.cfg.LogMaxBackups,
					MaxAgeDays: c.cfg.LogMaxAgeDays,
				})
			} else {
				telemetry.SetOutput(c.errOut)
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logCloser != nil {
				_ = c.logCloser.Close()
			}
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVar(&c.catalogPath, "catalog", "", "catalog YAML file (default $CATALOG_PATH or the embedded catalog)")

	root.AddCommand(
		newAnalyzeCmd(c),
		newRecommendCmd(c),
		newCatalogCmd(c),
		newMCPCmd(c),
	)
	return root
}

func (c *cli) loadCatalog() (*catalog.Catalog, error) {
	path := c.catalogPath
	if strings.TrimSpace(path) == "" {
		path = c.cfg.CatalogPath
	}
	return catalog.Load(path)
}

func (c *cli) engine() (*engine.Engine, error) {
	cat, err := c.loadCatalog()
	if err != nil {
		return nil, err
	}
	return engine.New(analyzer.New(cat, nil)), nil
}

// repo returns an in-memory repository, or the configured database when save is set.
// The returned closer is never nil.
func (c *cli) repo(ctx context.Context, save bool) (recommendations.Repo, func(), error) {
	if !save {
		return recommendations.NewMemoryRepo(), func() {}, nil
	}
	if strings.TrimSpace(c.cfg.DatabaseURL) == "" {
		return nil, nil, fmt.Errorf("--save requires DATABASE_URL")
	}
	sqlDB, dialect, err := db.Connect(ctx, c.cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		return nil, nil, err
	}
	closer := func() { _ = sqlDB.Close() }
	if err := db.RunMigrations(ctx, sqlDB, dialect); err != nil {
		closer()
		return nil, nil, err
	}
	if dialect == db.SQLite {
		return recommendations.NewSQLiteRepo(sqlDB), closer, nil
	}
	return &recommendations.PGRepo{DB: sqlDB}, closer, nil
}
