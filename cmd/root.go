package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/azor-ai/azor/internal/config"
	"github.com/azor-ai/azor/internal/provider"
)

var (
	cfgFile       string
	modelFlag     string
	providerFlag  string
	sessionIDFlag string

	// Package-level version info, set by Execute().
	appVersion string
	appCommit  string
	appDate    string
)

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date

	rootCmd := &cobra.Command{
		Use:   "azor",
		Short: "Conversational AI assistant for the terminal",
		Long:  "azor is a terminal chat client with persistent, titled, switchable sessions.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default ~/.config/azor/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "override model")
	rootCmd.PersistentFlags().StringVarP(&providerFlag, "provider", "p", "", "override provider")
	rootCmd.Flags().StringVarP(&sessionIDFlag, "session", "s", "", "resume an existing session by id")

	rootCmd.AddCommand(newSessionsCmd())
	rootCmd.AddCommand(newVersionCmd(version, commit, date))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig loads configuration, applying CLI flag overrides.
func initConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if providerFlag != "" {
		cfg.Provider = providerFlag
	}
	if modelFlag != "" {
		cfg.Model = modelFlag
	}
	return cfg
}

// providerBaseURLs maps OpenAI-compatible backend names to their base URLs.
var providerBaseURLs = map[string]string{
	"openai":   "https://api.openai.com/v1",
	"gemini":   "https://generativelanguage.googleapis.com/v1beta/openai/",
	"deepseek": "https://api.deepseek.com",
	"kimi":     "https://api.moonshot.cn/v1",
	"qwen":     "https://dashscope.aliyuncs.com/compatible-mode/v1",
	"groq":     "https://api.groq.com/openai/v1",
}

// buildProvider creates a Provider instance based on configuration. A
// failure here is fatal to startup: no session can function without a
// working backend.
func buildProvider(cfg *config.Config) (provider.Provider, error) {
	name := cfg.Provider
	pc := cfg.GetProviderConfig(name)

	apiKey := pc.APIKey
	if apiKey == "" {
		return nil, fmt.Errorf(
			"API key not configured for provider %q.\n"+
				"Set it via:\n"+
				"  - config file: providers.%s.api_key\n"+
				"  - environment: LLM_API_KEY",
			name, name,
		)
	}

	model := cfg.Model
	if model == "" {
		model = pc.Model
	}

	switch name {
	case "anthropic":
		return provider.NewAnthropicProvider(apiKey, model)
	default:
		// All other backends use the OpenAI-compatible API.
		baseURL := pc.BaseURL
		if baseURL == "" {
			if u, ok := providerBaseURLs[name]; ok {
				baseURL = u
			} else {
				return nil, fmt.Errorf("unknown provider %q; set providers.%s.base_url in config", name, name)
			}
		}
		return provider.NewOpenAIProvider(apiKey, baseURL, model)
	}
}
