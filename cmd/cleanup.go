/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/HPNChanel/contract-generator/internal/config"
	"github.com/HPNChanel/contract-generator/internal/pdf"
)

// cleanupCmd represents the cleanup command
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove old generated PDF files",
	Long: `Remove generated PDF files older than the given number of days.
A file is removed when its age in whole days strictly exceeds the
threshold. Suitable for running from cron.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 加载配置
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		days, _ := cmd.Flags().GetInt("days")
		if days < 0 {
			return fmt.Errorf("days must not be negative: %d", days)
		}

		// 2. 执行清理
		store := pdf.NewFileStore(cfg.PDF.OutputDir)
		deleted, err := store.Cleanup(days)
		if err != nil {
			return fmt.Errorf("failed to clean up pdf files: %w", err)
		}

		log.Printf("Cleanup completed: removed %d file(s) older than %d day(s) from %s",
			deleted, days, cfg.PDF.OutputDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)

	cleanupCmd.Flags().String("config", "", "Config file path (default: config.yaml)")
	cleanupCmd.Flags().Int("days", 30, "Maximum file age in days")
}
