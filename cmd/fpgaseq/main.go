// Command fpgaseq compiles experiment recipes into board packets and
// replays them.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/fpgaseq/buildinfo"
	"github.com/sarchlab/fpgaseq/config"
	"github.com/sarchlab/fpgaseq/deconv"
	"github.com/sarchlab/fpgaseq/experiment"
	"github.com/sarchlab/fpgaseq/recipe"
)

type app struct {
	configFile string
	logLevel   string

	cfg     config.Config
	logger  *slog.Logger
	connect func(user, pass, host, dbname string) (*buildinfo.SQLSource, error)
}

func main() {
	a := &app{connect: buildinfo.Connect}

	rootCmd := &cobra.Command{
		Use:           "fpgaseq",
		Short:         "Compile qubit control sequences for FPGA boards",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.setup()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "JSON configuration file")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level")

	rootCmd.AddCommand(compileCmd(a))
	rootCmd.AddCommand(replayCmd(a))
	rootCmd.AddCommand(propsCmd(a))
	rootCmd.AddCommand(verifyCmd(a))

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func (a *app) setup() error {
	a.cfg = config.Default()

	if a.configFile != "" {
		cfg, err := config.LoadConfiguration(a.configFile)
		if err != nil {
			return err
		}

		a.cfg = cfg
	}

	if a.logLevel != "" {
		a.cfg.LogLevel = a.logLevel
	}

	level, err := a.cfg.Level()
	if err != nil {
		return err
	}

	a.logger = config.NewLogger(os.Stderr, level)
	slog.SetDefault(a.logger)
	a.cfg.Print(a.logger)

	return nil
}

// source returns the build metadata source. The database is used unless
// disabled, in which case the builds pinned by the recipe are served. An
// unreachable database gives a nil source, so every board keeps its family
// defaults.
func (a *app) source(r *recipe.Recipe) buildinfo.Source {
	if a.cfg.NoDB {
		return r.StaticSource()
	}

	src, err := a.connect(a.cfg.User, a.cfg.Passwd, a.cfg.Host, a.cfg.DBName)
	if err != nil {
		a.logger.Warn("registry unavailable, using default build metadata",
			"host", a.cfg.Host,
			"err", err,
		)

		return nil
	}

	atexit.Register(func() {
		if err := src.Close(); err != nil {
			a.logger.Warn("closing registry", "err", err)
		}
	})

	return src
}

// experiment loads a recipe and replays it on a new experiment. The
// dispatcher is closed at exit.
func (a *app) experiment(ctx context.Context, filename string) (*experiment.Experiment, error) {
	r, err := recipe.Load(filename)
	if err != nil {
		return nil, err
	}

	src := a.source(r)

	dispatcher := deconv.DispatcherBuilder{}.
		WithNumWorkers(a.cfg.DeconvWorkers).
		WithLogger(a.logger).
		Build(deconv.DryRun{})
	atexit.Register(dispatcher.Close)

	b := experiment.NewBuilder().
		WithDispatcher(dispatcher).
		WithLogger(a.logger).
		WithAutoTriggerLength(a.cfg.AutoTriggerLengthNs)

	e, err := r.Experiment(ctx, src, b)
	if err != nil {
		return nil, err
	}

	if r.Config.LoopDelayUs == nil && a.cfg.LoopDelayUs != nil {
		e.ConfigLoopDelay(*a.cfg.LoopDelayUs)
	}

	if r.Sram.DualBlockDelayNs == nil && a.cfg.DualBlockDelayNs != nil {
		e.SramDualBlockDelay(*a.cfg.DualBlockDelayNs)
	}

	return e, nil
}
