package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/use-agent/deckfetch/config"
)

// newConfigCmd manages the stored summarizer API key.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage deckfetch configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set-key KEY",
		Short: "Save the Perplexity API key to ~/.config/deckfetch/config.json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.SaveAPIKey(args[0]); err != nil {
				return err
			}
			fmt.Printf("API key saved: %s\n", config.MaskKey(args[0]))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show-key",
		Short: "Show the configured API key (masked) and its source",
		RunE: func(cmd *cobra.Command, args []string) error {
			key := config.APIKey()
			if key == "" {
				fmt.Println("No API key configured.")
				return nil
			}
			fmt.Printf("API key: %s (source: %s)\n", config.MaskKey(key), config.KeySource())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear-key",
		Short: "Remove the saved API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ClearAPIKey(); err != nil {
				return err
			}
			fmt.Println("API key cleared.")
			return nil
		},
	})

	return cmd
}
