package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"diabetesml/pkg/config"
	"diabetesml/pkg/ingest"
	"diabetesml/pkg/logging"
	"diabetesml/pkg/pipeline"
	"diabetesml/pkg/preprocess"
	"diabetesml/pkg/serve"
	"diabetesml/pkg/train"
)

type app struct {
	root       string
	configPath string

	cfg   *config.Config
	paths config.Paths
}

func main() {
	a := &app{}
	cmd := a.rootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		logging.Log.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}

func (a *app) rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "diabetesml",
		Short:         "Train and serve the diabetes classifier",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	cmd.PersistentFlags().StringVar(&a.root, "root", ".", "Project root holding artifacts/, logs/ and mlruns/")
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to the YAML configuration (defaults to <root>/"+config.ConfigPath+")")

	cmd.AddCommand(
		a.stageCommand("ingest", "Download the raw CSV and split it into train and test sets",
			func() pipeline.Stage { return ingest.New(a.cfg, a.paths) }),
		a.stageCommand("preprocess", "Engineer features, impute and scale the split data",
			func() pipeline.Stage { return preprocess.New(a.cfg, a.paths) }),
		a.stageCommand("train", "Tune, evaluate, track and register the classifier",
			func() pipeline.Stage { return train.New(a.cfg, a.paths) }),
		a.pipelineCommand(),
		a.serveCommand(),
	)
	return cmd
}

func (a *app) setup() error {
	a.paths = config.NewPaths(a.root)
	if _, err := logging.Setup(a.paths.LogsDir); err != nil {
		return err
	}
	if a.configPath == "" {
		a.configPath = a.paths.Config
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func (a *app) stageCommand(use, short string, stage func() pipeline.Stage) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return pipeline.NewRunner(stage()).Run(ctx)
		},
	}
}

func (a *app) pipelineCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pipeline",
		Short: "Run ingestion, preprocessing and training in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return pipeline.NewRunner(
				ingest.New(a.cfg, a.paths),
				preprocess.New(a.cfg, a.paths),
				train.New(a.cfg, a.paths),
			).Run(ctx)
		},
	}
}

func (a *app) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the prediction form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Server.Address
			}
			srv, err := serve.NewServer(serve.LoadService(a.paths))
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve.Serve(ctx, addr, srv.Handler())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to server.address)")
	return cmd
}
