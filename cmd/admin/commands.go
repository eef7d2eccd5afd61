package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"trackbot/backend/internal/auth"
	"trackbot/backend/internal/storage"
	"trackbot/backend/internal/validation"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:           "admin",
	Short:         "Administration tool for the location tracking bot",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	tokenSubject string
	tokenTTL     time.Duration

	apiURL   string
	apiToken string

	reportsDSN   string
	reportsLimit int
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API token signed with JWT_SECRET",
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := os.Getenv("JWT_SECRET")
		if secret == "" {
			return fmt.Errorf("JWT_SECRET is not set")
		}
		token, err := auth.IssueToken([]byte(secret), tokenSubject, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var timingCmd = &cobra.Command{
	Use:   "timing <chat_id> <lat,lon>",
	Short: "Send a timing report to a chat through the HTTP API",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		chatID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid chat id %q", args[0])
		}
		dest, err := validation.ParseCoordinates(args[1])
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Minute)
		defer cancel()

		res, err := postTiming(ctx, http.DefaultClient, apiURL, apiToken, chatID, dest)
		if err != nil {
			return err
		}
		printTimingResult(cmd.OutOrStdout(), res)
		return nil
	},
}

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List the most recent delivered reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		if reportsDSN == "" {
			return fmt.Errorf("DATABASE_DSN is not set")
		}
		db, err := gorm.Open(postgres.Open(reportsDSN), &gorm.Config{})
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}

		s := storage.NewStorageService(db, nil) // No redis needed for admin CLI
		logs, err := s.RecentReportLogs(cmd.Context(), reportsLimit)
		if err != nil {
			return err
		}
		if len(logs) == 0 {
			color.New(color.FgYellow).Fprintln(cmd.OutOrStdout(), "No reports stored yet.")
			return nil
		}
		for _, l := range logs {
			printReportLog(cmd.OutOrStdout(), l)
		}
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "dispatch", "identity stored in the token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 30*24*time.Hour, "token lifetime")

	timingCmd.Flags().StringVar(&apiURL, "api", envOr("ADMIN_API_URL", "http://localhost:8443"), "bot HTTP API base URL")
	timingCmd.Flags().StringVar(&apiToken, "token", os.Getenv("API_TOKEN"), "API token or JWT")

	reportsCmd.Flags().StringVar(&reportsDSN, "dsn", os.Getenv("DATABASE_DSN"), "Postgres DSN")
	reportsCmd.Flags().IntVar(&reportsLimit, "limit", 20, "number of reports to show")

	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(timingCmd)
	rootCmd.AddCommand(reportsCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
