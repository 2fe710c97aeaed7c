package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"skymatch/internal/config"
	"skymatch/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "skymatch",
	Short: "One-to-one matching of observed sources to a reference catalogue",
	Long: `skymatch projects observed positions onto the sky, finds every
reference object within a search radius and resolves the candidates into a
strict one-to-one assignment, keeping the closest pair for every object.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is ./skymatch.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(matchCmd, serveCmd, templateCmd)
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("skymatch")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/skymatch")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SKYMATCH")
	// e.g. SKYMATCH_MATCH_RADIUS for match.radius
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// loadConfig loads and validates the configuration and builds the logger.
func loadConfig() (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger := logging.NewLogger(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	return cfg, logger, nil
}
