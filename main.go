package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"clawback/clawback/cmd/balances"
	"clawback/clawback/cmd/cleanup"
	"clawback/clawback/cmd/export"
	"clawback/clawback/cmd/handle"
	"clawback/clawback/cmd/inputs"
	"clawback/clawback/cmd/parse"
	"clawback/clawback/cmd/root"
	"clawback/clawback/cmd/serve"
	"clawback/clawback/cmd/trips"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func init() {
	// Environment first, without logging
	loadEnvSilently()

	// Global level before any logger is created
	root.Log.SetLevel(configureLogLevelDirectly())

	root.Init()

	root.Cmd.AddCommand(handle.Cmd)
	root.Cmd.AddCommand(parse.Cmd)
	root.Cmd.AddCommand(trips.Cmd)
	root.Cmd.AddCommand(balances.Cmd)
	root.Cmd.AddCommand(cleanup.Cmd)
	root.Cmd.AddCommand(export.Cmd)
	root.Cmd.AddCommand(serve.Cmd)
	root.Cmd.AddCommand(inputs.Cmd)
}

// loadEnvSilently loads environment variables without logging anything
func loadEnvSilently() {
	envFile := ".env"
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		envFile = filepath.Join("..", ".env")
		if _, err := os.Stat(envFile); os.IsNotExist(err) {
			return
		}
	}
	_ = godotenv.Load(envFile)
}

// configureLogLevelDirectly sets the global logrus level from LOG_LEVEL and returns it
func configureLogLevelDirectly() logrus.Level {
	logLevelStr := os.Getenv("LOG_LEVEL")
	if logLevelStr == "" {
		logLevelStr = "info"
	}

	logLevel, err := logrus.ParseLevel(strings.ToLower(logLevelStr))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logrus.SetLevel(logLevel)

	return logLevel
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
