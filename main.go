package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"policygen/main_backend/config"
	ds "policygen/main_backend/database_service"
	"policygen/main_backend/logging"
	"policygen/main_backend/questionnaire"
)

// rootFlags are shared by every subcommand.
type rootFlags struct {
	envFile  string
	logLevel string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// cobra already printed the error
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags rootFlags
	var memory bool

	serve := func(cmd *cobra.Command, _ []string) error {
		cfg := loadConfig(flags)
		cfg.InMemory = memory
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cfg)
	}

	root := &cobra.Command{
		Use:          "policygen",
		Short:        "Privacy Policy and Terms of Service generator backend",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         serve,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flags.envFile, "env-file", ".env", "Env file loaded before reading the environment")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error or off (overrides LOG_LEVEL)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
	for _, c := range []*cobra.Command{root, serveCmd} {
		c.Flags().BoolVar(&memory, "memory", false, "Keep all data in memory instead of Postgres")
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.envFile)
			if err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			if flags.logLevel != "" {
				cfg.LogLevel = flags.logLevel
			}
			log := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
			db, err := ds.Connect(cmd.Context(), cfg.DatabaseURL, cfg.MaxConns)
			if err != nil {
				return fmt.Errorf("db connect: %w", err)
			}
			defer db.Close()
			if err := db.Migrate(cmd.Context()); err != nil {
				return err
			}
			log.Info().Msg("schema applied")
			return nil
		},
	}

	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the question catalog with the prompt keys derived from it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := questionnaire.Default()
			if err != nil {
				return err
			}
			return printCatalog(cmd.OutOrStdout(), c)
		},
	}

	root.AddCommand(serveCmd, migrateCmd, catalogCmd)
	return root
}

func loadConfig(flags rootFlags) *config.Config {
	cfg := config.Read(flags.envFile)
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	return cfg
}

type catalogEntry struct {
	ID       string   `yaml:"id"`
	Key      string   `yaml:"key"`
	Type     string   `yaml:"type"`
	Required bool     `yaml:"required,omitempty"`
	Section  string   `yaml:"section"`
	ShowIf   string   `yaml:"showIf,omitempty"`
	Options  []string `yaml:"options,omitempty"`
}

func printCatalog(w io.Writer, c *questionnaire.Catalog) error {
	var entries []catalogEntry
	for _, q := range c.All() {
		e := catalogEntry{ID: q.ID, Key: q.Key(), Type: string(q.Type), Required: q.Required, Section: q.Section, Options: q.Options}
		switch r := q.ShowIf.(type) {
		case questionnaire.EqualsOne:
			e.ShowIf = fmt.Sprintf("%s == %q", r.Field, r.Value)
		case questionnaire.EqualsAny:
			e.ShowIf = fmt.Sprintf("%s in %q", r.Field, r.Values)
		}
		entries = append(entries, e)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]interface{}{"questions": entries}); err != nil {
		return err
	}
	return enc.Close()
}
