package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quire/internal/adapters/driven/index/sqlite"
	"github.com/custodia-labs/quire/internal/core/domain"
	"github.com/custodia-labs/quire/internal/logger"
)

var snapshotFile string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Save or load the passage index",
	Long: `Persists the in-memory passage index to a SQLite file so a later
run can restore it without re-embedding every document.`,
}

var snapshotSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save the passage index to disk",
	Args:  cobra.NoArgs,
	RunE:  runSnapshotSave,
}

var snapshotLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load a saved passage index",
	Args:  cobra.NoArgs,
	RunE:  runSnapshotLoad,
}

func init() {
	snapshotCmd.PersistentFlags().StringVarP(&snapshotFile, "file", "f", "", "snapshot file (default from config)")
	snapshotCmd.AddCommand(snapshotSaveCmd)
	snapshotCmd.AddCommand(snapshotLoadCmd)
	rootCmd.AddCommand(snapshotCmd)
}

// restoreIndex imports the saved snapshot, if any, so a fresh process
// starts with the passages of the last run instead of an empty index.
// Best effort: a missing or unreadable snapshot just means re-ingesting.
func restoreIndex(ctx context.Context) {
	if passageIndex == nil || snapshotPath == "" {
		return
	}
	if _, err := os.Stat(snapshotPath); err != nil {
		return
	}

	store, err := sqlite.Open(snapshotPath)
	if err != nil {
		logger.Warn("open snapshot: %v", err)
		return
	}
	defer store.Close()

	snap, err := store.Load(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("restore snapshot: %v", err)
		}
		return
	}
	if err := passageIndex.Import(ctx, snap); err != nil {
		logger.Warn("restore snapshot: %v", err)
		return
	}
	logger.Info("restored %d passage(s) from %s", len(snap.Passages), snapshotPath)
}

// persistIndex saves the current index so later invocations skip
// re-extraction and re-embedding of already-indexed documents.
func persistIndex(ctx context.Context) error {
	if passageIndex == nil || snapshotPath == "" {
		return nil
	}

	snap, err := passageIndex.Export(ctx)
	if err != nil {
		return fmt.Errorf("export index: %w", err)
	}

	store, err := sqlite.Open(snapshotPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Save(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	logger.Debug("persisted %d passage(s) to %s", len(snap.Passages), snapshotPath)
	return nil
}

func snapshotStorePath() (string, error) {
	if snapshotFile != "" {
		return snapshotFile, nil
	}
	if snapshotPath == "" {
		return "", errors.New("no snapshot path configured")
	}
	return snapshotPath, nil
}

func runSnapshotSave(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if passageIndex == nil {
		return errors.New("passage index not configured")
	}

	path, err := snapshotStorePath()
	if err != nil {
		return err
	}

	ctx := context.Background()
	snap, err := passageIndex.Export(ctx)
	if err != nil {
		return fmt.Errorf("export index: %w", err)
	}

	store, err := sqlite.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Save(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	cmd.Printf("Saved %d passage(s) to %s.\n", len(snap.Passages), path)
	return nil
}

func runSnapshotLoad(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if passageIndex == nil {
		return errors.New("passage index not configured")
	}

	path, err := snapshotStorePath()
	if err != nil {
		return err
	}

	store, err := sqlite.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	snap, err := store.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no snapshot stored at %s", path)
		}
		return fmt.Errorf("load snapshot: %w", err)
	}

	if err := passageIndex.Import(ctx, snap); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}
	cmd.Printf("Loaded %d passage(s) from %s.\n", len(snap.Passages), path)
	return nil
}
