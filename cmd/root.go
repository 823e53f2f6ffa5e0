package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/RyanBlaney/phrasebound/configs"
	"github.com/RyanBlaney/phrasebound/logging"
)

var (
	configFile string

	// v holds flags, PHRASEBOUND_* env vars, the config file and defaults
	v = configs.NewViper()

	// cfg is the effective configuration, loaded before any subcommand runs
	cfg *configs.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "phrasebound",
	Short: "Phrase boundary detection for songs",
	Long: `Locates structural phrase boundaries (section changes such as
verse to chorus) inside songs and records the earliest and latest
boundaries of each song as entry and exit candidates in a shared JSON
results document.

The pipeline runs a self-similarity analysis over fused chroma, timbre,
rhythm and spectral flux features and detects boundaries with a Foote
checkerboard novelty curve.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig()
	},
}

// exitError carries the process exit code for a failed command
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var e *exitError
	if errors.As(err, &e) {
		return e.code
	}
	return 1
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is ./phrasebound.yaml or $HOME/.config/phrasebound/phrasebound.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("no-color", false,
		"disable colored log output")

	bindFlags(rootCmd.PersistentFlags(), map[string]string{
		"log_level": "log-level",
		"no_color":  "no-color",
	})
}

// bindFlags binds each flag to its viper key, so a flag set on the command
// line takes precedence over env vars, the config file and defaults
func bindFlags(fs *pflag.FlagSet, bindings map[string]string) {
	for key, name := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

// initializeConfig reads the config file, decodes the effective
// configuration and applies its logging settings
func initializeConfig() error {
	if err := configs.ReadConfigFile(v, configFile); err != nil {
		return &exitError{code: 1, err: err}
	}

	loaded, err := configs.Load(v)
	if err != nil {
		return &exitError{code: 1, err: err}
	}

	level, err := logging.ParseLevel(loaded.LogLevel)
	if err != nil {
		return &exitError{code: 1, err: err}
	}
	logging.SetLevel(level)
	if loaded.NoColor {
		logging.DisableColors()
	}

	cfg = loaded
	return nil
}
