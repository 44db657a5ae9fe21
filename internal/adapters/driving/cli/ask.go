package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quire/internal/core/domain"
	"github.com/custodia-labs/quire/internal/logger"
)

var (
	askDocs []string
	askJSON bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about your documents",
	Long: `Answers a natural-language question using only passages retrieved
from the selected documents. Compound questions are detected and
answered part by part. Without --doc, every document is selected.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringArrayVarP(&askDocs, "doc", "d", nil, "restrict to a document by name (repeatable)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if askService == nil {
		return errors.New("ask service not configured")
	}

	ctx := context.Background()
	ids, err := selectDocumentIDs(ctx, askDocs)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return errors.New("no documents available; add files to the document directory first")
	}

	before := indexedPassageCount(ctx)

	answer, err := askService.Ask(ctx, args[0], ids)

	// Ask may have ingested the selection on demand; keep the snapshot
	// current so the next invocation skips re-embedding.
	if indexedPassageCount(ctx) != before {
		if perr := persistIndex(ctx); perr != nil {
			logger.Warn("persist index: %v", perr)
		}
	}

	if err != nil {
		if errors.Is(err, domain.ErrCompletionService) {
			cmd.Println("Sorry, I could not generate an answer right now. Please try again in a moment.")
			logger.Debug("completion failure: %v", err)
			return nil
		}
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return outputAnswerJSON(cmd, answer)
	}
	return outputAnswerText(cmd, answer)
}

// indexedPassageCount reports the index passage total, 0 when no index
// is wired.
func indexedPassageCount(ctx context.Context) int {
	if passageIndex == nil {
		return 0
	}
	stats, err := passageIndex.Stats(ctx)
	if err != nil {
		return 0
	}
	return stats.TotalPassages
}

// selectDocumentIDs maps --doc names to document IDs, or returns every
// document's ID when no names were given. Unknown names fail.
func selectDocumentIDs(ctx context.Context, names []string) ([]string, error) {
	if docSource == nil {
		return nil, errors.New("document source not configured")
	}
	docs, err := docSource.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	if len(names) == 0 {
		ids := make([]string, len(docs))
		for i, doc := range docs {
			ids[i] = doc.ID
		}
		return ids, nil
	}

	byName := make(map[string]string, len(docs))
	for _, doc := range docs {
		byName[doc.Name] = doc.ID
	}

	ids := make([]string, 0, len(names))
	for _, name := range names {
		id, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: no document named %q", domain.ErrNotFound, name)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func outputAnswerJSON(cmd *cobra.Command, answer *domain.Answer) error {
	data, err := json.MarshalIndent(answer, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputAnswerText(cmd *cobra.Command, answer *domain.Answer) error {
	cmd.Println(answer.Text)

	if len(answer.Sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i, src := range answer.Sources {
			snippet := src.Text
			if len(snippet) > 120 {
				snippet = snippet[:120] + "..."
			}
			snippet = strings.ReplaceAll(snippet, "\n", " ")
			cmd.Printf("  [%d] %s, page %d (%.2f)\n", i+1, src.DocumentName, src.Page, src.Similarity)
			cmd.Printf("      %s\n", snippet)
		}
	}

	cmd.Println()
	cmd.Printf("Answered in %s using %d passage(s) across %d question(s).\n",
		answer.Metadata.Duration.Round(time.Millisecond), answer.Metadata.PassagesUsed, answer.Metadata.SubQuestions)
	return nil
}
