package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rewired-gh/labcal/internal/config"
	"github.com/rewired-gh/labcal/internal/logger"
	"github.com/rewired-gh/labcal/internal/session"
)

// app carries global flags and the session shared by subcommands.
type app struct {
	configPath    string
	sample        string
	standardsPath string
	hormone       string
	patientsPath  string
	output        string

	cfg  *config.Config
	sess *session.Session
}

// rootCommand creates and returns the root command
func rootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "labcal",
		Short:         "Hormone calibration curves and concentration estimates",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to configuration file (defaults and LABCAL_* environment when empty)")
	flags.StringVar(&a.sample, "sample", "", "Use a built-in sample standard (Cortisol, TSH, Testosterone)")
	flags.StringVar(&a.standardsPath, "standards", "", "Load standards from a JSON, YAML or CSV file")
	flags.StringVar(&a.hormone, "hormone", "", "Select a standard by name after loading")
	flags.StringVar(&a.patientsPath, "patients", "", "Load patients from a JSON, YAML or CSV file (sample patients when empty)")
	flags.StringVarP(&a.output, "output", "o", "text", "Output format: text, json or yaml")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.initialize()
	}

	rootCmd.AddCommand(
		samplesCommand(a),
		patientsCommand(a),
		calibrateCommand(a),
		predictCommand(a),
		statsCommand(a),
		plotCommand(a),
		exportCommand(a),
	)
	return rootCmd
}

// initialize loads configuration, sets up logging and creates the session.
func (a *app) initialize() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	switch a.output {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("output must be one of: text, json, yaml")
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	if a.configPath != "" {
		logger.Debug("Configuration loaded from %s", a.configPath)
	}

	a.cfg = cfg
	a.sess = session.New(cfg)
	return nil
}

// loadStandard registers the standard source named by the flags. Without
// --sample or --standards the first sample standard is used.
func (a *app) loadStandard() error {
	switch {
	case a.standardsPath != "":
		if _, err := a.sess.LoadStandards(a.standardsPath); err != nil {
			return err
		}
	default:
		name := a.sample
		if name == "" {
			name = a.sess.Catalog().Names()[0]
			logger.Debug("No standard source given; using sample %s", name)
		}
		if _, err := a.sess.UseSample(name); err != nil {
			return err
		}
	}
	if a.hormone != "" {
		return a.sess.Select(a.hormone)
	}
	return nil
}

// loadPatients reads --patients or generates sample patients.
func (a *app) loadPatients() error {
	if a.patientsPath != "" {
		_, err := a.sess.LoadPatients(a.patientsPath)
		return err
	}
	_, err := a.sess.GeneratePatients()
	return err
}

// encode writes v as JSON or YAML. It reports false for text output.
func (a *app) encode(w io.Writer, v any) (bool, error) {
	switch a.output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return true, enc.Encode(v)
	}
	return false, nil
}
