package main

import (
	"encoding/json"
	"fmt"

	"github.com/pevans/issuewatch/store"
	"github.com/spf13/cobra"
)

// latestCmd represents the latest command
var latestCmd = &cobra.Command{
	Use:   "latest <records-path>",
	Short: "Print the latest known issue",
	Args:  cobra.ExactArgs(1),
	RunE:  runLatest,
}

func init() {
	rootCmd.AddCommand(latestCmd)
	latestCmd.Flags().StringVar(&storageType, "storage-type", "", "record storage: file or sqlite (default from config)")
}

func runLatest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("storage-type") {
		cfg.StorageType = storageType
	}

	backend, closeBackend, err := openBackend(cfg.StorageType, args[0])
	if err != nil {
		return err
	}
	defer closeBackend()

	records, err := store.Load(backend)
	if err != nil {
		return err
	}

	latest, ok := records.Latest()
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "No issues recorded.")
		return nil
	}

	data, err := json.MarshalIndent(latest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode issue: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
