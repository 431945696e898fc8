package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/vk/featuregrid/internal/app"
)

func TestParse(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name           string
		args           []string
		expectExit     bool
		expectErr      bool
		expectedConfig *app.Config
		checkOutput    func(t *testing.T, output string)
	}{
		{
			name: "Happy Path with all flags",
			args: []string{
				"-model", "/test/model.xml",
				"--influence=/test/pim.csv",
				"-config", "/test/a.json",
				"-config", "/test/b.yaml",
				"-regions", "/test/regions",
				"-regions", "/test/more/regions_*.json",
				"-features", "optA, cache_size",
				"-partial",
				"-only-positive",
				"-solve-timeout", "250ms",
				"-publish-url", "http://localhost:3000",
				"--log-level=debug",
				"--log-format=text",
				"--healthcheck-port=8080",
			},
			expectedConfig: &app.Config{
				ModelPath:       "/test/model.xml",
				InfluencePath:   "/test/pim.csv",
				ConfigPaths:     []string{"/test/a.json", "/test/b.yaml"},
				RegionPatterns:  []string{"/test/regions", "/test/more/regions_*.json"},
				Features:        []string{"optA", "cache_size"},
				Partial:         true,
				OnlyPositive:    true,
				SolveTimeout:    250 * time.Millisecond,
				PublishURL:      "http://localhost:3000",
				LogLevel:        "debug",
				LogFormat:       "text",
				HealthcheckPort: 8080,
			},
		},
		{
			name: "Positional argument for model and defaults",
			args: []string{"/positional/model.hcl"},
			expectedConfig: &app.Config{
				ModelPath: "/positional/model.hcl",
				LogLevel:  "info",
				LogFormat: "json",
			},
		},
		{
			name: "Project file alone",
			args: []string{"-project", "/test/project.hcl", "-compare", "a.json,b.json"},
			expectedConfig: &app.Config{
				ProjectPath:  "/test/project.hcl",
				ComparePaths: []string{"a.json", "b.json"},
				LogLevel:     "info",
				LogFormat:    "json",
			},
		},
		{
			name:       "Help flag",
			args:       []string{"-h"},
			expectExit: true,
			checkOutput: func(t *testing.T, output string) {
				require.Contains(t, output, "Usage:")
				require.Contains(t, output, "-solve-timeout")
			},
		},
		{
			name:       "No model prints usage",
			args:       []string{},
			expectExit: true,
			checkOutput: func(t *testing.T, output string) {
				require.Contains(t, output, "MODEL_PATH")
			},
		},
		{name: "Invalid log level", args: []string{"-log-level=trace", "m.xml"}, expectErr: true},
		{name: "Invalid log format", args: []string{"-log-format=yaml", "m.xml"}, expectErr: true},
		{name: "Unknown flag", args: []string{"-nope"}, expectErr: true},
		{name: "Compare needs two files", args: []string{"-compare", "a.json", "m.xml"}, expectErr: true},
		{name: "Compare and watch", args: []string{"-compare", "a.json,b.json", "-watch", "m.xml"}, expectErr: true},
		{name: "Negative timeout", args: []string{"-solve-timeout=-1s", "m.xml"}, expectErr: true},
		{name: "Port out of range", args: []string{"-healthcheck-port=70000", "m.xml"}, expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer

			cfg, shouldExit, err := Parse(tc.args, &out)

			if tc.expectErr {
				require.Error(t, err)
				var exitErr *ExitError
				require.ErrorAs(t, err, &exitErr)
				require.Equal(t, 2, exitErr.Code)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expectExit, shouldExit)
			if tc.checkOutput != nil {
				tc.checkOutput(t, out.String())
			}
			if tc.expectedConfig != nil {
				if diff := cmp.Diff(tc.expectedConfig, cfg); diff != "" {
					t.Errorf("config mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestListFlag(t *testing.T) {
	var l listFlag
	require.NoError(t, l.Set("a, b,,c"))
	require.NoError(t, l.Set("d"))
	require.Equal(t, listFlag{"a", "b", "c", "d"}, l)
	require.True(t, strings.HasPrefix(l.String(), "a,b"))
}
