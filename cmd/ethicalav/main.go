package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dilasha-ghimire/EthicalAV/internal/auth"
	"github.com/dilasha-ghimire/EthicalAV/internal/config"
	"github.com/dilasha-ghimire/EthicalAV/internal/dataset"
	"github.com/dilasha-ghimire/EthicalAV/internal/decisionlog"
	"github.com/dilasha-ghimire/EthicalAV/internal/ethics"
	"github.com/dilasha-ghimire/EthicalAV/internal/policy"
	"github.com/dilasha-ghimire/EthicalAV/internal/scenario"
	"github.com/dilasha-ghimire/EthicalAV/internal/server"
	"github.com/dilasha-ghimire/EthicalAV/internal/telemetry"
)

const version = "0.1.0"

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, checking for environment variable")
	}

	logger := zap.Must(zap.NewProduction())
	defer logger.Sync()

	root := &cobra.Command{
		Use:     "ethicalav",
		Short:   "Ethical decision engine for autonomous vehicle dilemmas",
		Version: version,
	}

	root.AddCommand(newServeCmd(logger))
	root.AddCommand(newDecideCmd(logger))
	root.AddCommand(newSweepCmd(logger))
	root.AddCommand(newLabelCmd(logger))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newServeCmd(logger *zap.Logger) *cobra.Command {
	var (
		configPath string
		addrFlag   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP decision service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if addrFlag != "" {
				cfg.Server.Addr = addrFlag
			} else if env := strings.TrimSpace(os.Getenv("ETHICALAV_ADDR")); env != "" {
				cfg.Server.Addr = env
			}
			if err := config.Validate(cfg); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			authz, err := auth.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("failed to build auth: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			tel, err := telemetry.NewProvider(ctx, telemetry.Config{
				Enabled:  cfg.Telemetry.Enabled,
				Endpoint: cfg.Telemetry.Endpoint,
				Protocol: cfg.Telemetry.Protocol,
				Service:  "ethicalav",
				Version:  version,
			}, logger)
			if err != nil {
				return fmt.Errorf("failed to init telemetry: %w", err)
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				tel.Shutdown(shutdownCtx)
			}()

			em, err := decisionlog.NewEmitterFromConfig(cfg.DecisionLog, logger)
			if err != nil {
				return fmt.Errorf("failed to build decision log: %w", err)
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				em.Close(closeCtx)
			}()

			srv := server.New(cfg, authz, em, tel, logger)
			return srv.Run(ctx, cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "ethicalav.yaml", "path to config file")
	cmd.Flags().StringVar(&addrFlag, "addr", "", "HTTP listen address (overrides config)")
	return cmd
}

func newDecideCmd(logger *zap.Logger) *cobra.Command {
	var (
		name     string
		mode     string
		child    bool
		left     float64
		right    float64
		speed    int
		asJSON   bool
		eventLog string
	)

	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Decide a single scenario and print the outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			rec := scenario.New(scenario.ParseKind(name), child, left, right, speed)

			start := time.Now()
			out := policy.Explain(ethics.ParseMode(mode), rec)
			elapsed := time.Since(start)

			logger.Debug("decided scenario",
				zap.String("kind", string(out.Kind)),
				zap.String("mode", string(out.Mode)),
				zap.String("decision", string(out.Final)))

			if eventLog != "" {
				sink, err := decisionlog.NewFileSink(eventLog)
				if err != nil {
					return fmt.Errorf("failed to open event log: %w", err)
				}
				ev := decisionlog.NewEvent(decisionlog.SourceCLI, rec, out, elapsed)
				if err := sink.Deliver(cmd.Context(), ev); err != nil {
					return fmt.Errorf("failed to write event log: %w", err)
				}
				if err := sink.Close(cmd.Context()); err != nil {
					return fmt.Errorf("failed to close event log: %w", err)
				}
			}

			if asJSON {
				data, err := json.MarshalIndent(out, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("%s | %s => %s\n", out.Kind, out.Mode, out.Final)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "scenario", string(scenario.KindCarVsPedestrian), "scenario kind")
	cmd.Flags().StringVar(&mode, "mode", string(ethics.ModeUtilitarian), "ethical mode")
	cmd.Flags().BoolVar(&child, "child", false, "a child is present in the scene")
	cmd.Flags().Float64Var(&left, "left", 0, "risk of swerving left, 0..1")
	cmd.Flags().Float64Var(&right, "right", 0, "risk of swerving right, 0..1")
	cmd.Flags().IntVar(&speed, "speed", 0, "vehicle speed in km/h")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full outcome as JSON")
	cmd.Flags().StringVar(&eventLog, "log", "", "append the decision event to this JSONL file")
	return cmd
}

// sweepScenarios is the canned demo set: one dilemma per known kind.
var sweepScenarios = []scenario.Record{
	scenario.New(scenario.KindCarVsPedestrian, false, 0.3, 0.6, 30),
	scenario.New(scenario.KindCarVsCar, true, 0.8, 0.2, 50),
	scenario.New(scenario.KindPedestrianVsPedestrian, false, 0.1, 0.1, 10),
}

func newSweepCmd(logger *zap.Logger) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the demo scenarios through every mode and log the matrix",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Each sweep starts a fresh log.
			if err := os.Remove(outPath); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to reset %s: %w", outPath, err)
			}
			sink, err := decisionlog.NewCSVSink(outPath)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", outPath, err)
			}

			for _, rec := range sweepScenarios {
				for _, mode := range ethics.Modes() {
					start := time.Now()
					out := policy.Explain(mode, rec)
					ev := decisionlog.NewEvent(decisionlog.SourceSweep, rec, out, time.Since(start))
					if err := sink.Deliver(cmd.Context(), ev); err != nil {
						return fmt.Errorf("failed to log decision: %w", err)
					}
					fmt.Printf("%s | %s => %s\n", out.Kind, out.Mode, out.Final)
				}
			}

			if err := sink.Close(cmd.Context()); err != nil {
				return fmt.Errorf("failed to close %s: %w", outPath, err)
			}
			logger.Info("sweep complete",
				zap.Int("scenarios", len(sweepScenarios)),
				zap.Int("modes", len(ethics.Modes())),
				zap.String("path", outPath))
			return nil
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "results/ethical_decision_log.csv", "CSV output path")
	return cmd
}

func newLabelCmd(logger *zap.Logger) *cobra.Command {
	var (
		configPath string
		rows       int
		seed       int64
		outDir     string
		workers    int
	)

	cmd := &cobra.Command{
		Use:   "label",
		Short: "Generate a labeled training dataset for every mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			dc := dataset.Config{
				Rows:    cfg.Dataset.Rows,
				Seed:    cfg.Dataset.Seed,
				OutDir:  cfg.Dataset.OutDir,
				Workers: workers,
			}
			if rows > 0 {
				dc.Rows = rows
			}
			if cmd.Flags().Changed("seed") {
				dc.Seed = seed
			}
			if outDir != "" {
				dc.OutDir = outDir
			}

			paths, err := dataset.Build(cmd.Context(), dc, logger)
			if err != nil {
				return fmt.Errorf("failed to build dataset: %w", err)
			}
			for _, p := range paths {
				fmt.Println(p)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "ethicalav.yaml", "path to config file")
	cmd.Flags().IntVar(&rows, "rows", 0, "rows per mode (overrides config)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (overrides config)")
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (overrides config)")
	cmd.Flags().IntVar(&workers, "workers", 0, "labeling goroutines, 0 for all CPUs")
	return cmd
}
