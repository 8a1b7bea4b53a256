package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"entgo.io/ent/dialect"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/syssam/magicbox/config"
	"github.com/syssam/magicbox/driver"
	"github.com/syssam/magicbox/graph"
	"github.com/syssam/magicbox/repository"
)

// app is the state shared by the subcommands, set during PersistentPreRunE.
type app struct {
	out, errOut io.Writer

	cfg        *config.Config
	configPath string
	registry   *graph.Registry
	driver     dialect.Driver
	stats      *driver.StatsDriver
	logger     *slog.Logger

	// Persistent flags
	cfgFile string
	v       *viper.Viper
}

// Command group IDs
const (
	groupRead   = "read"
	groupWrite  = "write"
	groupSchema = "schema"
)

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut, v: viper.New()}
	root := &cobra.Command{
		Use:   "magicbox",
		Short: "Relational access engine",
		Long: `magicbox - Relational access engine

Reads and writes the entities declared in magicbox.yaml with flat
key/value filters, sorts, eager loads and cascading input.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	f := root.PersistentFlags()
	f.StringVar(&a.cfgFile, "config", "", "config file (default: auto-discover magicbox.yaml)")
	f.String("driver", "", "database driver: sqlite, postgres, pgx or mysql")
	f.String("dsn", "", "database DSN")
	f.Int("depth", 0, "relation depth limit of filters, sorts and eager loads")
	f.Bool("debug", false, "log every statement")
	f.Duration("slow", 0, "slow query threshold")

	v := a.v
	v.SetEnvPrefix("MAGICBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlag("database.driver", f.Lookup("driver"))
	_ = v.BindPFlag("database.dsn", f.Lookup("dsn"))
	_ = v.BindPFlag("engine.depth_limit", f.Lookup("depth"))
	_ = v.BindPFlag("engine.debug", f.Lookup("debug"))
	_ = v.BindPFlag("engine.slow_query_threshold", f.Lookup("slow"))

	root.AddGroup(
		&cobra.Group{ID: groupRead, Title: "Read:"},
		&cobra.Group{ID: groupWrite, Title: "Write:"},
		&cobra.Group{ID: groupSchema, Title: "Schema:"},
	)
	for _, c := range []struct {
		cmd   *cobra.Command
		group string
	}{
		{newQueryCmd(a), groupRead},
		{newSaveCmd(a), groupWrite},
		{newDeleteCmd(a), groupWrite},
		{newVerifyCmd(a), groupSchema},
	} {
		c.cmd.GroupID = c.group
		root.AddCommand(c.cmd)
	}
	return root
}

// setup loads the configuration with precedence flags > env > file >
// defaults, builds the registry and opens the database.
func (a *app) setup() error {
	var err error
	if a.cfgFile != "" {
		a.cfg, err = config.LoadFromPath(a.cfgFile)
		a.configPath = a.cfgFile
	} else {
		a.cfg, a.configPath, err = config.Load()
	}
	if err != nil {
		return configError("loading configuration", err)
	}
	a.override()

	level := slog.LevelInfo
	if a.cfg.Engine.Debug {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: level}))
	if a.configPath != "" {
		a.logger.Debug("magicbox: config loaded", "path", a.configPath)
	}

	a.registry, err = a.cfg.Registry()
	if err != nil {
		return configError("building registry", err)
	}
	drv, err := driver.Open(a.cfg.Database.Driver, a.cfg.Database.DSN)
	if err != nil {
		return dbConnectError("opening database", err)
	}
	a.stats = driver.NewStatsDriver(drv,
		driver.WithSlowThreshold(a.cfg.Engine.SlowQueryThreshold.Duration()),
		driver.WithSlowQueryLog(a.logger),
	)
	a.driver = a.stats
	if a.cfg.Engine.Debug {
		a.driver = driver.NewDebugDriver(a.stats, a.logger)
	}
	return nil
}

func (a *app) override() {
	v := a.v
	if v.IsSet("database.driver") {
		a.cfg.Database.Driver = v.GetString("database.driver")
	}
	if v.IsSet("database.dsn") {
		a.cfg.Database.DSN = v.GetString("database.dsn")
	}
	if v.IsSet("engine.depth_limit") {
		n := v.GetInt("engine.depth_limit")
		a.cfg.Engine.DepthLimit = &n
	}
	if v.IsSet("engine.debug") {
		a.cfg.Engine.Debug = v.GetBool("engine.debug")
	}
	if v.IsSet("engine.slow_query_threshold") {
		if d := v.GetDuration("engine.slow_query_threshold"); d > 0 {
			a.cfg.Engine.SlowQueryThreshold = config.Duration(d)
		}
	}
}

func (a *app) close() error {
	if a.driver == nil {
		return nil
	}
	a.logger.Debug("magicbox: done", "stats", a.stats.Stats().Snapshot().String())
	err := a.driver.Close()
	a.driver = nil
	return err
}

// repository binds entity with the configured depth limit.
func (a *app) repository(entity string) (*repository.Repository, error) {
	repo, err := repository.New(a.registry, entity, a.driver,
		repository.WithLogger(a.logger),
		repository.WithDepthLimit(a.cfg.Depth()),
	)
	if err != nil {
		return nil, commandError("binding repository", err)
	}
	return repo, nil
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

// splitPair splits "key=value" flags.
func splitPair(s string) (string, string, error) {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return "", "", fmt.Errorf("expected key=value, got %q", s)
	}
	return k, v, nil
}
