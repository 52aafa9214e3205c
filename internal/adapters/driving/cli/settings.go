package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driving"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change settings stored in config.toml.

Environment variables (NEUROQUERY_*, OPENAI_API_KEY, DATABASE_URL) override
stored values and are shown as effective settings.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a single setting",
	Long: `Store one setting by its dotted key.

Examples:
  neuroquery settings set chunking.size 800
  neuroquery settings set vector_store.backend pgvector
  neuroquery settings set uploads.allowed_extensions .pdf,.PDF
  neuroquery settings set query.stream_delay 0s`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure the embedding provider",
	Long:  `Interactively choose the embedding provider, model and API key, then check the provider responds.`,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM answers",
	Long:  `Interactively choose the LLM that writes answers from retrieved sources, then check it responds.`,
	RunE:  runSettingsLLM,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	svc, err := requireSettings(cmd)
	if err != nil {
		return err
	}

	settings, err := svc.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	outln(cmd, "Current Settings")
	outln(cmd, "================")
	outln(cmd)
	outf(cmd, "Data directory: %s\n\n", settings.DataDir)

	outln(cmd, "[Embedding]")
	outf(cmd, "  Provider:   %s\n", settings.Embedding.Provider.Description())
	outf(cmd, "  Model:      %s\n", settings.Embedding.Model)
	outf(cmd, "  Dimensions: %d\n", settings.Embedding.Dimensions)
	if settings.Embedding.BaseURL != "" {
		outf(cmd, "  Base URL:   %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		outf(cmd, "  API Key:    %s\n", displayKey(settings.Embedding.APIKey))
	}
	outln(cmd)

	outln(cmd, "[Answer]")
	outf(cmd, "  Mode: %s\n", settings.Answer.Mode)
	if settings.Answer.Mode == domain.AnswerModeLLM {
		llm := settings.Answer.LLM
		outf(cmd, "  Provider: %s\n", llm.Provider.Description())
		outf(cmd, "  Model:    %s\n", llm.Model)
		if llm.Provider.RequiresAPIKey() {
			outf(cmd, "  API Key:  %s\n", displayKey(llm.APIKey))
		}
	}
	outln(cmd)

	outln(cmd, "[Vector Store]")
	outf(cmd, "  Backend:    %s\n", settings.VectorStore.Backend)
	outf(cmd, "  Collection: %s\n", settings.VectorStore.Collection)
	if settings.VectorStore.Backend == domain.VectorBackendPGVector {
		outf(cmd, "  DSN:        %s\n", displayKey(settings.VectorStore.DSN))
	} else {
		outf(cmd, "  Path:       %s\n", settings.VectorStore.Path)
	}
	outln(cmd)

	outln(cmd, "[Ingestion]")
	outf(cmd, "  Extractor:  %s\n", settings.Extraction.Engine)
	outf(cmd, "  Chunker:    %s (size %d, overlap %d)\n",
		settings.Chunking.Strategy, settings.Chunking.Size, settings.Chunking.Overlap)
	outf(cmd, "  Uploads:    %s (max %d bytes, %s)\n",
		settings.Uploads.Dir, settings.Uploads.MaxSize, strings.Join(settings.Uploads.AllowedExtensions, ", "))
	outln(cmd)

	outln(cmd, "[Server]")
	outf(cmd, "  Address: %s\n", settings.Server.Addr())
	outf(cmd, "  CORS:    %s\n", strings.Join(settings.Server.CORSOrigins, ", "))
	outln(cmd)

	if err := settings.Validate(); err != nil {
		outf(cmd, "Warning: %v\n", err)
		outln(cmd, "Run 'neuroquery settings set <key> <value>' to fix configuration issues.")
	} else {
		outln(cmd, "Configuration is valid.")
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	svc, err := requireSettings(cmd)
	if err != nil {
		return err
	}

	key, value := args[0], parseSettingValue(args[1])
	if err := svc.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	outf(cmd, "Set %s = %v\n", key, args[1])

	if settings, err := svc.Get(); err == nil {
		if err := settings.Validate(); err != nil {
			outf(cmd, "Warning: %v\n", err)
		}
	}
	return nil
}

// parseSettingValue converts a command line value to the type stored in config.toml.
func parseSettingValue(raw string) any {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if strings.Contains(raw, ",") {
		parts := strings.Split(raw, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return raw
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	svc, err := requireSettings(cmd)
	if err != nil {
		return err
	}
	return configureEmbeddingProvider(cmd, svc, bufio.NewReader(cmd.InOrStdin()))
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	svc, err := requireSettings(cmd)
	if err != nil {
		return err
	}
	return configureLLMProvider(cmd, svc, bufio.NewReader(cmd.InOrStdin()))
}

func configureEmbeddingProvider(cmd *cobra.Command, svc driving.SettingsService, reader *bufio.Reader) error {
	providers := []domain.AIProvider{domain.AIProviderOllama, domain.AIProviderOpenAI}
	provider, model, apiKey, err := promptProvider(cmd, reader, "Embedding", providers, domain.DefaultEmbeddingModels())
	if err != nil {
		return err
	}

	values := map[string]any{
		"embedding.provider": string(provider),
		"embedding.model":    model,
	}
	if apiKey != "" {
		values["embedding.api_key"] = apiKey
	}
	if dims, ok := domain.EmbeddingDimensions()[model]; ok {
		values["embedding.dimensions"] = dims
	}
	if err := setAll(svc, values); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	outf(cmd, "Validating configuration... ")
	if err := svc.ValidateEmbeddingConfig(); err != nil {
		outf(cmd, "FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	outln(cmd, "OK")
	outf(cmd, "Embedding provider configured: %s (%s)\n", provider.Description(), model)
	outln(cmd, "Re-ingest your documents if the model or dimensions changed.")
	return nil
}

func configureLLMProvider(cmd *cobra.Command, svc driving.SettingsService, reader *bufio.Reader) error {
	providers := []domain.AIProvider{domain.AIProviderOllama, domain.AIProviderOpenAI, domain.AIProviderAnthropic}
	provider, model, apiKey, err := promptProvider(cmd, reader, "LLM", providers, domain.DefaultLLMModels())
	if err != nil {
		return err
	}

	values := map[string]any{
		"answer.mode":         string(domain.AnswerModeLLM),
		"answer.llm.provider": string(provider),
		"answer.llm.model":    model,
	}
	if apiKey != "" {
		values["answer.llm.api_key"] = apiKey
	}
	if err := setAll(svc, values); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	outf(cmd, "Validating configuration... ")
	if err := svc.ValidateLLMConfig(); err != nil {
		outf(cmd, "FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	outln(cmd, "OK")
	outf(cmd, "LLM answers configured: %s (%s)\n", provider.Description(), model)
	return nil
}

func promptProvider(
	cmd *cobra.Command,
	reader *bufio.Reader,
	kind string,
	providers []domain.AIProvider,
	defaults map[domain.AIProvider]string,
) (provider domain.AIProvider, model, apiKey string, err error) {
	outf(cmd, "Select %s Provider\n", kind)
	for i, p := range providers {
		outf(cmd, "  %d. %s\n", i+1, p.Description())
	}
	outf(cmd, "\nEnter choice [1]: ")
	provider = providers[parseChoice(readLine(reader), len(providers), 1)-1]

	defaultModel := defaults[provider]
	outf(cmd, "Enter model name [%s]: ", defaultModel)
	model = readLine(reader)
	if model == "" {
		model = defaultModel
	}

	if provider.RequiresAPIKey() {
		outf(cmd, "Enter API key: ")
		apiKey = readPassword(cmd.InOrStdin(), reader)
		outln(cmd)
		if apiKey == "" {
			return "", "", "", errors.New("API key is required for this provider")
		}
	}
	return provider, model, apiKey, nil
}

func setAll(svc driving.SettingsService, values map[string]any) error {
	for key, value := range values {
		if err := svc.Set(key, value); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo from a terminal, or a plain line otherwise.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return string(password)
		}
	}
	return readLine(reader)
}

func displayKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	return maskAPIKey(key)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
