// Package cli turns command-line arguments into an app.Config. Usage errors
// are reported as ExitError values carrying the process exit code.
package cli
