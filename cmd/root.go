// Package cmd provides the command-line interface for running modsim
// scenarios.
package cmd

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/modsim-lab/modsim/datarecording"
	"github.com/modsim-lab/modsim/monitoring"
	"github.com/modsim-lab/modsim/sim"
)

var (
	scenarioPath string
	logLevel     string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "modsim",
	Short: "modsim runs module-composition discrete-event simulations.",
	Long: `modsim runs module-composition discrete-event simulations. A scenario ` +
		`file selects the participating modules, the simulated time range, and ` +
		`the parameter overrides; the engine resolves the module activation ` +
		`order from the declared inputs and outputs and drives the event loop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScenario()
	},
	SilenceUsage: true,
}

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the dependency graph of a scenario as JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printGraph()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&scenarioPath,
		"scenario", "s", "scenario.yaml", "path of the scenario file")
	rootCmd.PersistentFlags().StringVar(&logLevel,
		"log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(graphCmd)
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	// A .env file can supply defaults such as MODSIM_MONITOR_PORT; a missing
	// file is not an error.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func setupLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetLevel(level)

	return log, nil
}

func buildSimulation(
	cfg ScenarioConfig,
	log *logrus.Logger,
) (*sim.Simulation, error) {
	b := sim.MakeBuilder().
		WithRegistry(demoRegistry(log)).
		WithModules(cfg.Modules...).
		WithStartTime(sim.VTime(cfg.Start)).
		WithEndTime(sim.VTime(cfg.End)).
		WithTimeUnit(cfg.TimeUnit).
		WithLogger(log)

	for name, value := range cfg.GlobalParams {
		b = b.WithGlobalParam(name, value)
	}

	for module, params := range cfg.Params {
		for name, value := range params {
			b = b.WithModuleParam(module, name, value)
		}
	}

	if cfg.LogEvents {
		b = b.WithEventLogging()
	}

	return b.Build()
}

func runScenario() error {
	log, err := setupLogger()
	if err != nil {
		return err
	}

	cfg, err := LoadScenario(scenarioPath)
	if err != nil {
		return err
	}

	s, err := buildSimulation(cfg, log)
	if err != nil {
		return err
	}

	if cfg.Trace != "" {
		recorder := datarecording.New(cfg.Trace)
		datarecording.AttachTraceRecorder(s, recorder)
		defer recorder.Close()
	}

	if cfg.Monitor {
		monitor := monitoring.NewMonitor().WithPortNumber(monitorPort(cfg))
		monitor.RegisterSimulation(s)
		if _, err := monitor.StartServer(false); err != nil {
			return err
		}
	}

	log.WithFields(logrus.Fields{
		"simulation": s.ID(),
		"modules":    s.ActivationOrder(),
		"start":      cfg.Start,
		"end":        cfg.End,
		"unit":       cfg.TimeUnit,
	}).Info("starting simulation")

	if err := s.Run(); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"now":     float64(s.Scheduler().CurrentTime()),
		"objects": s.State().ObjectNames(),
	}).Info("simulation finished")

	return nil
}

func monitorPort(cfg ScenarioConfig) int {
	if cfg.MonitorPort != 0 {
		return cfg.MonitorPort
	}

	if port := os.Getenv("MODSIM_MONITOR_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			return p
		}
	}

	return 0
}

func printGraph() error {
	log, err := setupLogger()
	if err != nil {
		return err
	}

	cfg, err := LoadScenario(scenarioPath)
	if err != nil {
		return err
	}

	s, err := buildSimulation(cfg, log)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(s.DependencyGraph())
}
