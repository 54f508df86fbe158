package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stupidhang/streamdemo/amqp/rabbitmq"
	"github.com/stupidhang/streamdemo/config"
	"github.com/stupidhang/streamdemo/monitor"
	"github.com/stupidhang/streamdemo/runner"
)

type options struct {
	configFile string
	envFile    string
	flags      *pflag.FlagSet
}

func newRootCommand() *cobra.Command {
	var opts options
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:           "streamdemo [OPTIONS]",
		Short:         "Publish to and consume from a RabbitMQ stream queue.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.flags = cmd.Flags()
			return run(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configFile, "config", "", "TOML configuration file")
	flags.StringVar(&opts.envFile, "env-file", ".env", "Environment file with "+config.EnvPrefix+"* variables")
	defaults.InstallFlags(flags)

	return cmd
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.configFile, opts.envFile, opts.flags)
	if err != nil {
		return err
	}
	if err := setupLogging(cfg); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitor.New(reg)

	client, err := rabbitmq.NewClient(ctx, cfg.Connection())
	if err != nil {
		return err
	}
	defer client.Close()
	logrus.Info("Connection established")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := monitor.Serve(ctx, cfg.MetricsAddr, reg); err != nil {
				logrus.WithError(err).Error("metrics server stopped")
			}
		}()
	}

	return runner.New(client, cfg, metrics, logrus.StandardLogger()).Run(ctx)
}

func setupLogging(cfg *config.Config) error {
	lvl, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("unable to parse logging level: %s", cfg.LogLevel)
	}
	logrus.SetLevel(lvl)

	switch cfg.LogFormat {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logrus.SetOutput(os.Stderr)
	cmd := newRootCommand()
	cmd.SetOut(os.Stdout)
	if err := cmd.ExecuteContext(ctx); err != nil {
		logrus.WithError(err).Error("streamdemo failed")
		stop()
		os.Exit(1)
	}
}
