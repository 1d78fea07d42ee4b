package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	devenv "citaprevia/dev/env"
	"citaprevia/internal/catalog"
	"citaprevia/internal/citaprevia"
	"citaprevia/internal/components/chrono"
	"citaprevia/internal/components/telemetry"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
)

// app is shared by every subcommand, the root command fills it in before any of them run.
type app struct {
	configPath string
	verbose    bool
	trace      bool
	dumpDir    string

	config Config
	tel    telemetry.API
	clock  chrono.API
	out    io.Writer

	liveClient *citaprevia.Client
	catalog    *catalog.Catalog
}

func (a *app) setup(cmd *cobra.Command) error {
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	if a.trace {
		level = telemetry.LevelTrace
	}
	telemetry.InitSlog(level)

	config, err := loadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.dumpDir != "" {
		config.DumpDir = a.dumpDir
	}
	a.config = config
	a.out = cmd.OutOrStdout()
	if a.tel == nil {
		metered, err := telemetry.NewMeteredAPI(telemetry.SlogAPI{}, otel.Meter("citaprevia"))
		if err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
		a.tel = metered
	}
	if a.clock == nil {
		a.clock = chrono.NewStandardImpl()
	}
	return nil
}

func (a *app) client() (*citaprevia.Client, error) {
	if a.liveClient != nil {
		return a.liveClient, nil
	}

	opts := citaprevia.ClientOptions{
		BaseUrl:   a.config.BaseUrl,
		UserAgent: a.config.UserAgent,
		Timeout:   a.config.timeout(),
		RateLimit: a.config.RateLimit,
	}
	if a.config.DumpDir != "" {
		dir, err := devenv.ResolvePath(a.config.DumpDir)
		if err != nil {
			return nil, err
		}
		output, err := telemetry.NewFilesystemOutput(dir)
		if err != nil {
			return nil, err
		}
		opts.Dump = output
	}

	client, err := citaprevia.NewClient(opts, a.tel, a.clock)
	if err != nil {
		return nil, err
	}
	a.liveClient = client
	return client, nil
}

func (a *app) catalogPath() (string, error) {
	return devenv.ResolvePath(a.config.CatalogPath)
}

func (a *app) loadCatalog() (*catalog.Catalog, error) {
	if a.catalog != nil {
		return a.catalog, nil
	}
	path, err := a.catalogPath()
	if err != nil {
		return nil, err
	}
	c, err := catalog.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no catalog at %s, generate one with `citaprevia datagen`", path)
	}
	if err != nil {
		return nil, err
	}
	a.catalog = c
	return c, nil
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "citaprevia",
		Short:         "citaprevia looks up offices, procedures and open appointments of the Madrid city council.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to the config file, defaults to the nearest "+defaultConfigName+".")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Log requests and other debug information.")
	flags.BoolVar(&a.trace, "trace", false, "Log full response bodies as well.")
	flags.StringVar(&a.dumpDir, "dump-dir", "", "Write full http transcripts to this directory.")

	rootCmd.AddCommand(
		newListOfficesCmd(a),
		newListProceduresCmd(a),
		newOfficeInfoCmd(a),
		newClosestOfficeCmd(a),
		newAppointmentsCmd(a),
		newOfficeDetailCmd(a),
		newDatagenCmd(a),
		newWatchCmd(a),
	)
	return rootCmd
}

// run executes the command line and returns the exit code.
func run(ctx context.Context, a *app, args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd(a)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err != nil && err.Error() != "" {
		fmt.Fprintln(stderr, err)
	}
	return exitCode(err)
}

func ExecuteContext(ctx context.Context) int {
	return run(ctx, &app{}, os.Args[1:], os.Stdout, os.Stderr)
}
