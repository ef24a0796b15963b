package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/princeofnothin/teste-languify/pkg/cli"
)

const appName = "languify"

var (
	// Global flags
	cfgFile     string
	envFile     string
	contextName string
	outputJSON  bool
	verbose     bool

	globalConfig *cli.Config
	// configLoadErr is reported by getConfig so that commands which do not
	// need the config still run.
	configLoadErr error
)

var rootCmd = &cobra.Command{
	Use:   "languify",
	Short: "Push-to-talk voice sessions over a realtime speech endpoint",
	Long: `languify - talk to a realtime speech model from the terminal.

Press Enter to start speaking, Enter again to send the turn. The reply is
played back and its transcript shown as soon as it arrives.

Endpoints are kept in contexts, similar to kubectl, stored in
~/.languify/languify/config.yaml. LANGUIFY_REALTIME_URL and LANGUIFY_API_KEY,
from the environment or a .env file, override the context.

Examples:
  # Register an endpoint and make it current
  languify config add-context openai --base-url "wss://api.openai.com/v1/realtime?model=gpt-4o-realtime-preview" --api-key sk-...
  languify config use-context openai

  # Talk
  languify talk

  # Try the whole pipeline locally, no backend needed
  languify talk --loopback`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadEnvFile(envFile)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.languify/languify/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load if present")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context name to use")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output as JSON (for piping)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(talkCmd)
	rootCmd.AddCommand(loopbackCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	globalConfig, configLoadErr = cli.LoadConfigWithPath(appName, cfgFile)
}

// getConfig returns the loaded configuration.
func getConfig() (*cli.Config, error) {
	if configLoadErr != nil {
		return nil, fmt.Errorf("config not available: %w", configLoadErr)
	}
	if globalConfig == nil {
		return nil, errors.New("configuration not initialized")
	}
	return globalConfig, nil
}

// loadEnvFile loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// newLogger returns a text logger at info level, or debug with -v.
func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// outputResult writes result as YAML, or JSON with --json.
func outputResult(cmd *cobra.Command, result any) error {
	format := cli.FormatYAML
	if outputJSON {
		format = cli.FormatJSON
	}
	return cli.Output(cmd.OutOrStdout(), result, format)
}

func printer(cmd *cobra.Command) cli.Printer {
	return cli.Printer{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr()}
}
