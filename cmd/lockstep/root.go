package main

import (
	"fmt"
	"log/slog"

	"github.com/gordian-engine/lockstep/ls/lsconfig"
	"github.com/spf13/cobra"
)

// rootFlags are the persistent flags shared by every subcommand.
// Each one overrides the config file and environment only when set explicitly.
type rootFlags struct {
	configPath string

	lengthOne, lengthTwo int
	debug                bool
	worldSize            int

	seed       string
	runName    string
	reportFile string

	httpAddr, httpUnix string
}

// env is the shared state built by the root command before any subcommand runs.
type env struct {
	Config lsconfig.Config
	Log    *slog.Logger
}

// NewRootCommand returns the lockstep command tree.
// lookupEnv is normally [os.LookupEnv].
func NewRootCommand(lookupEnv func(string) (string, bool)) *cobra.Command {
	var f rootFlags
	e := new(env)

	root := &cobra.Command{
		Use:   "lockstep",
		Short: "Run the lockstep random string round protocol",
		Long: `lockstep runs one coordinator and two generators.
Each round, both generators send a random alphanumeric string to the coordinator,
which accepts the pair when every byte of the first string occurs in the second.
Rounds repeat until a pair is accepted.`,

		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.load(cmd, lookupEnv)
			if err != nil {
				return err
			}
			e.Config = cfg
			e.Log = newLogger(cmd, cfg.Debug)
			return nil
		},
	}

	d := lsconfig.Default()
	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "path to a YAML config file")
	pf.IntVarP(&f.lengthOne, "length-one", "o", d.LengthOne, "length of the first generator's strings")
	pf.IntVarP(&f.lengthTwo, "length-two", "t", d.LengthTwo, "length of the second generator's strings")
	pf.BoolVarP(&f.debug, "debug", "d", d.Debug, "enable debug logging")
	pf.IntVar(&f.worldSize, "world-size", d.WorldSize, "number of processes started by the launcher (overrides "+lsconfig.WorldSizeEnv+")")
	pf.StringVar(&f.seed, "seed", "", "hex seed for reproducible strings (at least 16 bytes)")
	pf.StringVar(&f.runName, "run-name", "", "human-readable run name (generated when empty)")
	pf.StringVar(&f.reportFile, "report-file", "", "write a YAML report of the accepted pair to this path")
	pf.StringVar(&f.httpAddr, "http-addr", "", "TCP address for the debug HTTP server")
	pf.StringVar(&f.httpUnix, "http-unix", "", "unix socket path for the debug HTTP server")

	root.AddCommand(
		newRunCommand(e),
		newCoordinatorCommand(e),
		newGeneratorCommand(e),
		newStatusCommand(e),
	)

	return root
}

// load layers the defaults, the config file, the environment,
// and the flags the user actually set, in that order.
func (f rootFlags) load(cmd *cobra.Command, lookupEnv func(string) (string, bool)) (lsconfig.Config, error) {
	cfg := lsconfig.Default()

	if f.configPath != "" {
		if err := lsconfig.LoadFile(f.configPath, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := cfg.ApplyEnv(lookupEnv); err != nil {
		return cfg, err
	}

	changed := cmd.Flags().Changed
	if changed("length-one") {
		cfg.LengthOne = f.lengthOne
	}
	if changed("length-two") {
		cfg.LengthTwo = f.lengthTwo
	}
	if changed("debug") {
		cfg.Debug = f.debug
	}
	if changed("world-size") {
		cfg.WorldSize = f.worldSize
	}
	if changed("seed") {
		cfg.Seed = f.seed
	}
	if changed("run-name") {
		cfg.RunName = f.runName
	}
	if changed("report-file") {
		cfg.ReportFile = f.reportFile
	}
	if changed("http-addr") {
		cfg.HTTPAddr = f.httpAddr
	}
	if changed("http-unix") {
		cfg.HTTPUnix = f.httpUnix
	}

	return cfg, nil
}

func newLogger(cmd *cobra.Command, debug bool) *slog.Logger {
	lvl := slog.LevelInfo
	if debug {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: lvl,
	}))
}

// validate is called first by every subcommand that takes part in a run.
func (e *env) validate() error {
	if err := e.Config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
