// Package root contains the root command for the application
package root

import (
	"sync"

	"clawback/clawback/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Log is the shared logger instance for commands
	Log = logrus.New()

	// AppConfig is the configuration loaded for the running command. Nil until LoadConfig runs.
	AppConfig *config.Config

	// ConfigFile is an explicit config file path; empty searches the default locations.
	ConfigFile string

	// StateDir overrides state.dir when set.
	StateDir string

	initOnce sync.Once

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "clawback",
		Short: "Split group trip expenses from chat messages.",
		Long: `clawback keeps a shared ledger for group trips.
Chat messages like "kai add dinner ₪340 paid by Dan" are parsed, confirmed
and recorded; balances are simplified into a short list of payments.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return LoadConfig()
		},
	}
)

// Init registers the persistent flags. It is safe to call more than once.
func Init() {
	initOnce.Do(func() {
		Cmd.PersistentFlags().StringVarP(&ConfigFile, "config", "c", "", "Config file (default searches $HOME/.clawback, .clawback and .)")
		Cmd.PersistentFlags().StringVar(&StateDir, "state-dir", "", "Directory for trip and chat state")
	})
}

// LoadConfig loads .env, the config file and environment overrides into
// AppConfig and reconfigures Log from it.
func LoadConfig() error {
	config.LoadEnv(Log)
	Log = config.ConfigureLogging(Log)

	cfg, err := config.InitializeConfig(ConfigFile)
	if err != nil {
		return err
	}
	if StateDir != "" {
		cfg.State.Dir = StateDir
	}

	Log = config.ConfigureLoggingFromConfig(cfg)
	AppConfig = cfg
	return nil
}

// EnsureConfig returns AppConfig, loading it first when a command runs outside the root.
func EnsureConfig() (*config.Config, error) {
	if AppConfig == nil {
		if err := LoadConfig(); err != nil {
			return nil, err
		}
	}
	return AppConfig, nil
}
