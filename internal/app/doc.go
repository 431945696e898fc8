// Package app wires the loaders, the validator, the PIM evaluator and the
// publisher into one run: it loads a variability model with its influence
// model and regions, evaluates configurations, reports the results and
// optionally keeps watching the configuration files. It is independent of
// the command line, which lives in package cli.
package app
