package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jpequegn/polybench/internal/config"
)

var (
	cfgFile string
	verbose bool
	logger  *slog.Logger
	cfg     config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "polybench",
	Short: "Declarative cross-language benchmark runner",
	Long: `Polybench runs benchmark suites declared in a single .bench file across
multiple host languages, compiling and executing a synthesized program per
language and comparing the results.

Supported languages:
  - Go
  - TypeScript (Node.js)
  - Rust`,
	Version: "0.1.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogger()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./polybench.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables if set, then fills
// the package-level cfg used by every subcommand.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("polybench")
	}

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}

	loaded, err := config.Load(viper.GetViper())
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		loaded = config.Default()
	}
	if verbose {
		loaded.Verbose = true
	}
	cfg = loaded
}

// initLogger sets up the global logger based on verbosity
func initLogger() {
	level := slog.LevelInfo
	if verbose || viper.GetBool("verbose") {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewTextHandler(os.Stderr, opts)
	logger = slog.New(handler)
	slog.SetDefault(logger)
}
