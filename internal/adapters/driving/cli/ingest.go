package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quire/internal/core/domain"
	"github.com/custodia-labs/quire/internal/logger"
)

var ingestWatch bool

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index every document in the document directory",
	Long: `Runs the extract, chunk, embed, index pipeline for every document
not yet indexed. With --watch, keeps running and re-indexes documents
as files change.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "watch the directory and re-index on changes")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if ingestService == nil || docSource == nil {
		return errors.New("ingest service not configured")
	}

	ctx := context.Background()

	// Fail fast when the embedding service is unreachable instead of
	// surfacing the same error once per document.
	if embeddingSvc != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := embeddingSvc.Ping(pingCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("embedding service unreachable: %w", err)
		}
	}

	docs, err := docSource.Documents(ctx)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	if len(docs) == 0 {
		cmd.Println("No documents found; add files to the document directory first.")
		return nil
	}

	report, err := ingestService.EnsureProcessed(ctx, docs)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	printReport(cmd, report)

	if len(report.Processed) > 0 {
		if err := persistIndex(ctx); err != nil {
			logger.Warn("persist index: %v", err)
		}
	}

	if !ingestWatch {
		return nil
	}
	return watchDocuments(ctx, cmd)
}

// watchDocuments re-indexes on file changes until interrupted.
func watchDocuments(ctx context.Context, cmd *cobra.Command) error {
	cmd.Println("Watching for changes (ctrl-c to stop)...")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := docSource.Watch(ctx, func(docs []domain.Document) {
		logger.Info("document set changed, %d document(s)", len(docs))
		ingestService.NotifySelection(docs)
	})
	ingestService.Stop()

	// Background runs may have ingested while watching.
	if perr := persistIndex(context.Background()); perr != nil {
		logger.Warn("persist index: %v", perr)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch failed: %w", err)
	}
	cmd.Println("Stopped.")
	return nil
}

func printReport(cmd *cobra.Command, report *domain.IngestReport) {
	cmd.Printf("Processed %d, skipped %d (already indexed) in %s.\n",
		len(report.Processed), len(report.Skipped), report.Duration.Round(time.Millisecond))

	for _, w := range report.Warnings {
		cmd.Printf("  warning: %s: %v\n", w.DocumentName, w.Err)
	}
}
