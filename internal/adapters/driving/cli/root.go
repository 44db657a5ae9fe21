// Package cli implements the quire command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	completionopenai "github.com/custodia-labs/quire/internal/adapters/driven/completion/openai"
	configfile "github.com/custodia-labs/quire/internal/adapters/driven/config/file"
	embeddingopenai "github.com/custodia-labs/quire/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/quire/internal/adapters/driven/index/memory"
	"github.com/custodia-labs/quire/internal/adapters/driven/source/filesystem"
	"github.com/custodia-labs/quire/internal/chunker"
	"github.com/custodia-labs/quire/internal/core/domain"
	"github.com/custodia-labs/quire/internal/core/ports/driven"
	"github.com/custodia-labs/quire/internal/core/ports/driving"
	"github.com/custodia-labs/quire/internal/core/services"
	"github.com/custodia-labs/quire/internal/extractors/auto"
	"github.com/custodia-labs/quire/internal/logger"
)

var version = "0.1.0"

var (
	verbose   bool
	configDir string
)

// Services are wired lazily by the first command that needs them.
// Tests inject their own implementations before executing a command.
var (
	askService    driving.AskService
	ingestService driving.IngestOrchestrator
	passageIndex  driven.PassageIndex
	docSource     driven.DocumentSource
	embeddingSvc  driven.EmbeddingService
	snapshotPath  string
)

var rootCmd = &cobra.Command{
	Use:   "quire",
	Short: "Ask questions about your documents",
	Long: `Quire indexes local documents into an in-memory vector index
and answers natural-language questions grounded in the most relevant
passages, with page-level source attribution.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default ~/.quire)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ensureServices wires the real adapters behind the driving ports.
// A no-op when a test has already injected services.
func ensureServices() error {
	if askService != nil {
		return nil
	}

	logger.SetVerbose(verbose)

	store, err := configfile.NewConfigStore(configDir)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	set := store.Settings()

	if set.EmbeddingAPIKey == "" {
		return fmt.Errorf("%w: set OPENAI_API_KEY or %s in %s",
			domain.ErrEmbeddingUnavailable, configfile.KeyEmbeddingAPIKey, store.Path())
	}

	embedder, err := embeddingopenai.NewEmbeddingService(embeddingopenai.Config{
		APIKey:    set.EmbeddingAPIKey,
		BaseURL:   set.EmbeddingBaseURL,
		Model:     set.EmbeddingModel,
		BatchSize: set.EmbeddingBatchSize,
	})
	if err != nil {
		return fmt.Errorf("embedding service: %w", err)
	}

	var completer driven.CompletionService
	if set.CompletionAPIKey != "" {
		completer, err = completionopenai.NewCompletionService(completionopenai.Config{
			APIKey:  set.CompletionAPIKey,
			BaseURL: set.CompletionBaseURL,
			Model:   set.CompletionModel,
		})
		if err != nil {
			logger.Warn("%v, answers degrade to passages: %v", domain.ErrCompletionUnavailable, err)
			completer = nil
		}
	}

	if err := os.MkdirAll(set.DocumentsDir, 0700); err != nil {
		return fmt.Errorf("document directory: %w", err)
	}
	source, err := filesystem.New(set.DocumentsDir)
	if err != nil {
		return err
	}

	idx := memory.New()
	ingest := services.NewIngestService(auto.New(),
		chunker.New(
			chunker.WithMaxSize(set.ChunkerMaxSize),
			chunker.WithOverlap(set.ChunkerOverlap),
			chunker.WithMinSize(set.ChunkerMinSize),
		),
		embedder, idx,
		services.WithBatchSize(set.IngestBatchSize),
		services.WithBatchDelay(set.IngestBatchDelay),
		services.WithDebounce(set.IngestDebounce),
	)

	askOpts := []services.AskOption{
		services.WithIngestion(ingest, source),
		services.WithMaxChunks(set.MaxChunks),
		services.WithTemperature(set.Temperature),
		services.WithMaxTokens(set.CompletionMaxTokens),
	}
	if completer != nil {
		askOpts = append(askOpts, services.WithCompletion(completer))
	}

	passageIndex = idx
	docSource = source
	embeddingSvc = embedder
	ingestService = ingest
	askService = services.NewAskService(embedder, idx, askOpts...)
	snapshotPath = set.SnapshotPath

	// The index lives in memory, so each process starts from the last
	// saved snapshot; without this every invocation re-embeds everything.
	restoreIndex(context.Background())
	return nil
}
