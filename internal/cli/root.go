package cli

import (
	"fmt"
	"os"

	"github.com/alterego-ai/alterego/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "alterego",
	Short: "AlterEgo - See your text the way a language model does",
	Long: `AlterEgo analyzes text for personal attribute inference before you
publish it.

It streams your text through a local or remote language model, surfaces
the personal attributes the model can infer (age, location, occupation,
and more), pins each inference to the exact phrases that leak it, and
proposes privacy-preserving replacements.

Everything runs against your own model endpoint. Your text is never
sent anywhere you did not configure.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number and build information for AlterEgo.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("alterego v0.2.1")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.alterego/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(home + "/.alterego")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match ALTEREGO_*
	viper.SetEnvPrefix("ALTEREGO")
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// applyFileConfig overlays settings from the config file onto defaults.
// CLI flags are applied after this, so they win
func applyFileConfig(cfg *model.Config) {
	if v := viper.GetString("llm.provider"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := viper.GetString("llm.model"); v != "" {
		cfg.LLM.Model = v
	}
	if v := viper.GetString("llm.base_url"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if viper.IsSet("llm.max_input_tokens") {
		cfg.LLM.MaxInputTokens = viper.GetInt("llm.max_input_tokens")
	}
	if v := viper.GetString("rephraser.provider"); v != "" {
		cfg.Rephraser.Provider = v
	}
	if v := viper.GetString("rephraser.model"); v != "" {
		cfg.Rephraser.Model = v
	}
	if v := viper.GetString("rephraser.base_url"); v != "" {
		cfg.Rephraser.BaseURL = v
	}
	if viper.IsSet("cache.enabled") {
		cfg.Cache.Enabled = viper.GetBool("cache.enabled")
	}
	if v := viper.GetString("cache.dir"); v != "" {
		cfg.Cache.Dir = v
	}
	if viper.IsSet("concurrency.validation_workers") {
		cfg.Concurrency.ValidationWorkers = viper.GetInt("concurrency.validation_workers")
	}
}

// resolveAPIKeys pulls provider credentials from the environment
func resolveAPIKeys(cfg *model.Config) error {
	for _, llmCfg := range []*model.LLMConfig{&cfg.LLM, &cfg.Rephraser} {
		switch llmCfg.Provider {
		case "openai":
			llmCfg.APIKey = os.Getenv("OPENAI_API_KEY")
			if llmCfg.APIKey == "" && llmCfg.BaseURL == "" {
				return fmt.Errorf("OPENAI_API_KEY environment variable not set")
			}
		case "ollama":
			// Ollama doesn't need an API key
			if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" && llmCfg.BaseURL == "" {
				llmCfg.BaseURL = baseURL
			}
		}
	}
	return nil
}
