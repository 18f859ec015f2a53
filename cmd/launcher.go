package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/healthfin/healthcare-api/infra"
)

type LaunchOptions struct {
	// SelfDir is the directory of the launcher binary. The .env file is looked
	// up there and in its parent.
	SelfDir  string
	Compiled CompiledConfig
	Out      io.Writer
}

type Preflight struct {
	SearchPath []string
	// DotEnvPath is empty when no .env file was found.
	DotEnvPath string
	Config     ServerConfig
}

func printBanner(out io.Writer, version string) {
	title := fmt.Sprintf("%s v%s", AppName, version)
	line := strings.Repeat("=", len(title)+4)
	fmt.Fprintln(out, line)
	fmt.Fprintf(out, "  %s\n", title)
	fmt.Fprintln(out, line)
}

// RunPreflight prints the banner, loads the .env file and checks the storage
// configuration. Only the storage check is fatal.
func RunPreflight(opts LaunchOptions) (Preflight, error) {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	printBanner(out, opts.Compiled.version())

	preflight := Preflight{SearchPath: infra.SearchPath(opts.SelfDir)}
	fmt.Fprintf(out, "Search path: %s\n", strings.Join(preflight.SearchPath, string(os.PathListSeparator)))

	preflight.DotEnvPath = infra.FindDotEnv(preflight.SearchPath)
	if preflight.DotEnvPath == "" {
		fmt.Fprintln(out, "Warning: no .env file found, using environment variables only")
	} else if err := infra.LoadDotEnv(preflight.DotEnvPath); err != nil {
		fmt.Fprintf(out, "Warning: %v\n", err)
	} else {
		fmt.Fprintf(out, "Loaded %s\n", preflight.DotEnvPath)
	}

	preflight.Config = LoadServerConfig(opts.Compiled)
	if err := preflight.Config.Storage.Validate(); err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return preflight, err
	}

	host := preflight.Config.Api.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	port := preflight.Config.Api.Port
	fmt.Fprintf(out, "Starting server on %s:%s\n", preflight.Config.Api.Host, port)
	fmt.Fprintf(out, "  API docs:  http://%s:%s/docs\n", host, port)
	fmt.Fprintf(out, "  Health:    http://%s:%s/health\n", host, port)
	fmt.Fprintf(out, "  WebSocket: ws://%s:%s/ws/chat\n", host, port)

	return preflight, nil
}

func executableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", errors.Wrap(err, "could not locate the executable")
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

func RunLauncher(compiled CompiledConfig) error {
	selfDir, err := executableDir()
	if err != nil {
		return err
	}

	preflight, err := RunPreflight(LaunchOptions{SelfDir: selfDir, Compiled: compiled})
	if err != nil {
		return err
	}
	return runServer(preflight.Config)
}
