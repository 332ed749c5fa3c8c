// Command cephbench deploys a Ceph benchmarking topology and runs
// benchmarks against it, recording parsed results for later inspection,
// comparison and plotting.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/canonical/ceph-bench/internal/config"
	"github.com/canonical/ceph-bench/internal/execution"
	"github.com/canonical/ceph-bench/internal/harness"
	"github.com/canonical/ceph-bench/internal/juju"
	"github.com/canonical/ceph-bench/internal/plot"
	"github.com/canonical/ceph-bench/internal/vault"
)

func main() {
	cmd := &cli.Command{
		Name:  "cephbench",
		Usage: "deploy and benchmark Ceph clusters",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to the configuration file (defaults are used when unset)",
			},
		},
		Commands: []*cli.Command{
			deployCommand(),
			runCommand(),
			vaultSetupCommand(),
			inspectCommand(),
			compareCommand(),
			plotCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	path := cmd.String("config")
	if path == "" {
		return config.Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration file: %w", err)
	}
	return config.ParseYAML(data)
}

// app bundles everything a subcommand needs. close releases the log file
// when one is configured.
type app struct {
	cfg     *config.Config
	harness *harness.Harness
	juju    *juju.Client
	logger  *log.Logger
	close   func()
}

func setup(cmd *cli.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, closeLog, err := harness.NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	jc := juju.NewClient(execution.NewLocalClient(), logger, cfg.Deploy.Model)
	return &app{
		cfg:     cfg,
		harness: harness.New(cfg, jc, logger, os.Stdout),
		juju:    jc,
		logger:  logger,
		close:   closeLog,
	}, nil
}

func deployCommand() *cli.Command {
	return &cli.Command{
		Name:  "deploy",
		Usage: "deploy the benchmarking topology to a new model",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "model", Usage: "model name (generated when unset)"},
			&cli.IntFlag{Name: "num-osds", Usage: "number of OSD machines"},
			&cli.StringFlag{Name: "channel", Usage: "charm channel for the ceph charms"},
			&cli.StringFlag{Name: "series", Usage: "machine series"},
			&cli.StringFlag{Name: "storage", Usage: "storage constraint for the OSD application"},
			&cli.StringFlag{Name: "constraints", Usage: "machine constraints for the OSD machines"},
			&cli.StringFlag{Name: "ppa", Usage: "PPA to install ceph from"},
			&cli.BoolFlag{Name: "rados", Usage: "include the rados gateway and its backing services"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			deploy := &a.cfg.Deploy
			if cmd.IsSet("model") {
				deploy.Model = cmd.String("model")
			}
			if cmd.IsSet("num-osds") {
				deploy.NumOSDs = int(cmd.Int("num-osds"))
			}
			if cmd.IsSet("channel") {
				deploy.Channel = cmd.String("channel")
			}
			if cmd.IsSet("series") {
				deploy.Series = cmd.String("series")
			}
			if cmd.IsSet("storage") {
				deploy.Storage = cmd.String("storage")
			}
			if cmd.IsSet("constraints") {
				deploy.Constraints = cmd.String("constraints")
			}
			if cmd.IsSet("ppa") {
				deploy.PPA = cmd.String("ppa")
			}
			if cmd.IsSet("rados") {
				deploy.Rados = cmd.Bool("rados")
			}
			return a.harness.Deploy(ctx)
		},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "run a benchmark and record the results",
		ArgsUsage: "<benchmark> [key value ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "run over SSH on a configured host instead of through the model",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args().Slice()
			if len(args) == 0 {
				return fmt.Errorf("no benchmark specified")
			}
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if host := cmd.String("host"); host != "" {
				return a.harness.RunDirect(ctx, host, args[0], args[1:])
			}
			return a.harness.Run(ctx, args[0], args[1:])
		},
	}
}

func vaultSetupCommand() *cli.Command {
	return &cli.Command{
		Name:  "vault-setup",
		Usage: "initialise, unseal and authorize the vault application",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			b := vault.New(a.juju, a.logger, vault.Options{
				Application:     a.cfg.Vault.Application,
				CredentialsFile: a.cfg.Vault.CredentialsFile,
				KeyShares:       a.cfg.Vault.KeyShares,
				KeyThreshold:    a.cfg.Vault.KeyThreshold,
			})
			return b.Setup(ctx)
		},
	}
}

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "show a stored benchmark run",
		ArgsUsage: "<run-dir>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "dump the full run metadata"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			runPath := cmd.Args().First()
			if runPath == "" {
				return fmt.Errorf("no run directory specified")
			}
			fmt.Print(harness.InspectRun(runPath, cmd.Bool("verbose")))
			return nil
		},
	}
}

func compareCommand() *cli.Command {
	return &cli.Command{
		Name:      "compare",
		Usage:     "compare the metrics of two stored runs",
		ArgsUsage: "<run-dir-a> <run-dir-b>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args().Slice()
			if len(args) != 2 {
				return fmt.Errorf("expected two run directories, got %d arguments", len(args))
			}
			a, err := harness.LoadRunMetadata(filepath.Join(args[0], "metadata.json"))
			if err != nil {
				return err
			}
			b, err := harness.LoadRunMetadata(filepath.Join(args[1], "metadata.json"))
			if err != nil {
				return err
			}
			fmt.Print(harness.FormatComparisons(harness.CompareRuns(a, b)))
			return nil
		},
	}
}

func plotCommand() *cli.Command {
	return &cli.Command{
		Name:  "plot",
		Usage: "chart a metric from the recorded benchmark history",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "metric", Usage: "history column to chart, e.g. read_iops", Required: true},
			&cli.StringFlag{Name: "benchmark", Usage: "only chart runs of this benchmark"},
			&cli.StringFlag{Name: "kind", Usage: "time_series or histogram", Value: plot.KindTimeSeries},
			&cli.StringFlag{Name: "title", Usage: "chart title"},
			&cli.StringFlag{Name: "out", Usage: "output file (extension selects the format)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			out := cmd.String("out")
			if out == "" {
				out = filepath.Join(cfg.Harness.OutputDir, cmd.String("metric")+".png")
			}
			return plot.History(
				filepath.Join(cfg.Harness.OutputDir, "results.csv"),
				out,
				plot.Options{
					Metric:    cmd.String("metric"),
					Benchmark: cmd.String("benchmark"),
					Title:     cmd.String("title"),
					Kind:      cmd.String("kind"),
				})
		},
	}
}
