package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/princeofnothin/teste-languify/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage endpoint contexts",
	Long: `Manage realtime endpoint contexts.

A context holds the WebSocket URL of a realtime endpoint, its API key and
connection settings. Configuration is stored in
~/.languify/languify/config.yaml`,
}

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name>",
	Short: "Add or replace a context",
	Long: `Add a context with the specified name.

Example:
  languify config add-context openai --base-url "wss://api.openai.com/v1/realtime?model=gpt-4o-realtime-preview" --api-key sk-...
  languify config add-context local --base-url ws://127.0.0.1:8089/v1/realtime
  languify config add-context proxy --base-url wss://proxy.example.com/ws/realtime --header X-Client=languify`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		baseURL, err := cmd.Flags().GetString("base-url")
		if err != nil {
			return fmt.Errorf("failed to read 'base-url' flag: %w", err)
		}
		if baseURL == "" {
			return fmt.Errorf("--base-url is required")
		}
		if _, err := normalizeURL(baseURL); err != nil {
			return err
		}
		apiKey, err := cmd.Flags().GetString("api-key")
		if err != nil {
			return fmt.Errorf("failed to read 'api-key' flag: %w", err)
		}
		timeout, err := cmd.Flags().GetInt("timeout")
		if err != nil {
			return fmt.Errorf("failed to read 'timeout' flag: %w", err)
		}
		maxRetries, err := cmd.Flags().GetInt("max-retries")
		if err != nil {
			return fmt.Errorf("failed to read 'max-retries' flag: %w", err)
		}
		headers, err := cmd.Flags().GetStringToString("header")
		if err != nil {
			return fmt.Errorf("failed to read 'header' flag: %w", err)
		}

		ctx := &cli.Context{
			APIKey:     apiKey,
			BaseURL:    baseURL,
			Timeout:    timeout,
			MaxRetries: maxRetries,
		}
		for k, v := range headers {
			ctx.SetExtra("header."+k, v)
		}

		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if err := cfg.AddContext(name, ctx); err != nil {
			return err
		}
		if apiKey == "" {
			printer(cmd).Warning("context %q has no API key; set %s or use --api-key", name, envAPIKey)
		}
		printer(cmd).Success("Context %q added", name)
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if err := cfg.DeleteContext(args[0]); err != nil {
			return err
		}
		printer(cmd).Success("Context %q deleted", args[0])
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if err := cfg.UseContext(args[0]); err != nil {
			return err
		}
		printer(cmd).Success("Switched to context %q", args[0])
		return nil
	},
}

var configGetContextCmd = &cobra.Command{
	Use:   "get-context",
	Short: "Display the current context",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if cfg.CurrentContext == "" {
			printer(cmd).Info("No current context set")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), cfg.CurrentContext)
		return nil
	},
}

var configListContextsCmd = &cobra.Command{
	Use:     "list-contexts",
	Aliases: []string{"get-contexts"},
	Short:   "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if len(cfg.Contexts) == 0 {
			printer(cmd).Info("No contexts configured")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENT\tNAME\tBASE_URL\tAPI_KEY")
		for _, name := range cfg.ListContexts() {
			ctx := cfg.Contexts[name]
			current := ""
			if name == cfg.CurrentContext {
				current = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", current, name, ctx.BaseURL, cli.MaskAPIKey(ctx.APIKey))
		}
		return w.Flush()
	},
}

// contextView is a context as shown by config view, with the key masked.
type contextView struct {
	Name       string            `json:"name" yaml:"name"`
	Current    bool              `json:"current,omitempty" yaml:"current,omitempty"`
	BaseURL    string            `json:"base_url" yaml:"base_url"`
	APIKey     string            `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Timeout    int               `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	MaxRetries int               `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
	Headers    map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "View the configuration with API keys masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		view := struct {
			Path           string        `json:"path" yaml:"path"`
			CurrentContext string        `json:"current_context" yaml:"current_context"`
			Contexts       []contextView `json:"contexts" yaml:"contexts"`
		}{
			Path:           cfg.Path(),
			CurrentContext: cfg.CurrentContext,
			Contexts:       []contextView{},
		}
		for _, name := range cfg.ListContexts() {
			ctx := cfg.Contexts[name]
			view.Contexts = append(view.Contexts, contextView{
				Name:       name,
				Current:    name == cfg.CurrentContext,
				BaseURL:    ctx.BaseURL,
				APIKey:     cli.MaskAPIKey(ctx.APIKey),
				Timeout:    ctx.Timeout,
				MaxRetries: ctx.MaxRetries,
				Headers:    ctx.Headers(),
			})
		}
		return outputResult(cmd, view)
	},
}

func init() {
	configAddContextCmd.Flags().String("base-url", "", "realtime WebSocket URL (required)")
	configAddContextCmd.Flags().String("api-key", "", "API key sent as a bearer token")
	configAddContextCmd.Flags().Int("timeout", 0, "dial timeout in seconds")
	configAddContextCmd.Flags().Int("max-retries", 0, "connect retries after the first attempt")
	configAddContextCmd.Flags().StringToString("header", nil, "extra handshake header, key=value (repeatable)")

	configCmd.AddCommand(configAddContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configGetContextCmd)
	configCmd.AddCommand(configListContextsCmd)
	configCmd.AddCommand(configViewCmd)
}
