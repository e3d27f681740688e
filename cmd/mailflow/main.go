package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/ajramos/mailflow/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// getConfigPath returns the configuration file path using the following priority:
// 1. CLI flag
// 2. Environment variable MAILFLOW_CONFIG
// 3. Default path ~/.config/mailflow/config.json
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return expandPath(flagValue)
	}

	if envPath := os.Getenv(config.EnvConfigPath); envPath != "" {
		return expandPath(envPath)
	}

	return config.DefaultConfigPath()
}

// expandPath expands ~ to the home directory
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
