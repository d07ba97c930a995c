package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vantley/answercore"
	"github.com/vantley/answercore/internal/llm"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "answercore",
		Short: "Retrieval-augmented question answering over tenant knowledge bases",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path")

	var ingestKind string
	ingestCmd := &cobra.Command{
		Use:   "ingest <tenant> <file>...",
		Short: "Build a tenant's knowledge base from plain-text files",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), configPath, args[0], args[1:], ingestKind)
		},
	}
	ingestCmd.Flags().StringVar(&ingestKind, "kind", "file", "Source kind: file, web, folder_file or database")

	var (
		conversationID string
		jsonOutput     bool
	)
	askCmd := &cobra.Command{
		Use:   "ask <tenant> <question>",
		Short: "Ask a question against a tenant's knowledge base",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args[1:], " ")
			return runAsk(cmd.Context(), configPath, args[0], question, conversationID, jsonOutput)
		},
	}
	askCmd.Flags().StringVar(&conversationID, "conversation", "", "Conversation id (enables consecutive-failure tracking, disables caching)")
	askCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the full result as JSON")

	forgetCmd := &cobra.Command{
		Use:   "forget <tenant>",
		Short: "Delete a tenant's collection and cached answers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := buildEngine(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer engine.Close(cmd.Context())
			return engine.Forget(cmd.Context(), args[0])
		},
	}

	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "List available LLM providers",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available LLM providers:")
			fmt.Println()
			for name, url := range llm.KnownProviders {
				fmt.Printf("  %-10s %s\n", name, url)
			}
			fmt.Println("  custom     (set base_url to any OpenAI-compatible endpoint)")
			fmt.Println("  none       (run without LLM, extractive answers only)")
			fmt.Println()
			fmt.Println("Configure in a config file or via environment:")
			fmt.Println("  ANSWERCORE_LLM_PROVIDER=groq")
			fmt.Println("  ANSWERCORE_LLM_API_KEY=gsk_...")
			fmt.Println("  ANSWERCORE_LLM_MODEL=llama-3.3-70b-versatile")
		},
	}

	rootCmd.AddCommand(ingestCmd, askCmd, forgetCmd, providersCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func buildEngine(ctx context.Context, configPath string) (*answercore.Engine, error) {
	cfg := answercore.DefaultConfig()
	if configPath != "" {
		loaded, err := answercore.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	return answercore.New(ctx, cfg)
}

func runIngest(ctx context.Context, configPath, tenant string, paths []string, kind string) error {
	engine, err := buildEngine(ctx, configPath)
	if err != nil {
		return err
	}
	defer engine.Close(ctx)

	var sources []answercore.Source
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		sources = append(sources, answercore.Source{
			Name: filepath.Base(path),
			Kind: kind,
			Text: string(data),
		})
	}

	manifest, err := engine.Ingest(ctx, tenant, sources)
	if err != nil {
		return err
	}
	for _, ref := range manifest.Processed {
		fmt.Printf("  %-12s %-30s %d chunks\n", ref.Kind, ref.Name, ref.Chunks)
	}
	fmt.Println(manifest.Message)
	return nil
}

func runAsk(ctx context.Context, configPath, tenant, question, conversationID string, jsonOutput bool) error {
	engine, err := buildEngine(ctx, configPath)
	if err != nil {
		return err
	}
	defer engine.Close(ctx)

	res := engine.Answer(ctx, answercore.AskRequest{
		Tenant:         tenant,
		Question:       question,
		ConversationID: conversationID,
	})

	if jsonOutput {
		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Println(res.Answer)
	fmt.Printf("\n[confidence %.0f, tier %d, %s]\n", res.Confidence, res.Tier, res.ResponseType)
	if res.SuggestTicket {
		fmt.Println("[consider opening a support ticket]")
	}
	return res.Err
}
