package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List available documents",
	Args:  cobra.NoArgs,
	RunE:  runDocs,
}

func init() {
	rootCmd.AddCommand(docsCmd)
}

func runDocs(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if docSource == nil {
		return errors.New("document source not configured")
	}

	ctx := context.Background()
	docs, err := docSource.Documents(ctx)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	for _, doc := range docs {
		indexed := " "
		if passageIndex != nil && passageIndex.Has(ctx, doc.ID) {
			indexed = "*"
		}
		cmd.Printf("%s %s  (%s, %d bytes)\n", indexed, doc.Name, doc.ID, len(doc.Data))
	}
	cmd.Println()
	cmd.Println("* indexed")
	return nil
}
