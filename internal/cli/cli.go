package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/featuregrid/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// listFlag collects a flag that may be repeated or hold comma separated
// values.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(value string) error {
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			*l = append(*l, v)
		}
	}
	return nil
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("featuregrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
featuregrid - Validate configurations of a variability model and predict
their non-functional properties.

Usage:
  featuregrid [options] [MODEL_PATH]

Arguments:
  MODEL_PATH
    SPLConqueror .xml model, .hcl model file or a directory of .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	var configs, compare, regions, features listFlag
	projectFlag := flagSet.String("project", "", "Path to the HCL project file supplying defaults.")
	modelFlag := flagSet.String("model", "", "Path to the variability model.")
	influenceFlag := flagSet.String("influence", "", "Path to the influence model table.")
	flagSet.Var(&configs, "config", "Configuration file to evaluate. May be repeated.")
	flagSet.Var(&compare, "compare", "Two configuration files to compare, separated by a comma.")
	flagSet.Var(&regions, "regions", "Region file, directory or glob. May be repeated.")
	flagSet.Var(&features, "features", "Comma separated feature order of the region weight arrays.")
	partialFlag := flagSet.Bool("partial", false, "Leave unselected options open instead of deselecting them.")
	onlyPositiveFlag := flagSet.Bool("only-positive", false, "Count negative region weights as zero.")
	solveTimeoutFlag := flagSet.Duration("solve-timeout", 0, "Upper bound for a single validation. 0 is unbounded.")
	watchFlag := flagSet.Bool("watch", false, "Re-evaluate configurations when their files change.")
	publishURLFlag := flagSet.String("publish-url", "", "socket.io server receiving model events and reports.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	modelPath := *modelFlag
	if modelPath == "" && flagSet.NArg() > 0 {
		modelPath = flagSet.Arg(0)
	}
	slog.Debug("Model path determined.", "path", modelPath)

	if modelPath == "" && *projectFlag == "" {
		slog.Debug("No model or project given, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ProjectPath:     *projectFlag,
		ModelPath:       modelPath,
		InfluencePath:   *influenceFlag,
		ConfigPaths:     configs,
		ComparePaths:    compare,
		RegionPatterns:  regions,
		Features:        features,
		Partial:         *partialFlag,
		OnlyPositive:    *onlyPositiveFlag,
		SolveTimeout:    *solveTimeoutFlag,
		Watch:           *watchFlag,
		PublishURL:      *publishURLFlag,
		HealthcheckPort: *healthPortFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
