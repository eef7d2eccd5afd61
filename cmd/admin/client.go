package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"trackbot/backend/internal/models"

	"github.com/fatih/color"
)

type timingResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Entries int    `json:"entries"`
	Errors  int    `json:"errors"`
	Error   string `json:"error"`
}

func postTiming(ctx context.Context, client *http.Client, baseURL, token string, chatID int64, dest models.Coordinates) (timingResult, error) {
	body, err := json.Marshal(map[string]any{"coordinates": dest.String(), "chatId": chatID})
	if err != nil {
		return timingResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/api/timing", bytes.NewReader(body))
	if err != nil {
		return timingResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return timingResult{}, fmt.Errorf("timing request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return timingResult{}, err
	}
	var res timingResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return timingResult{}, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return res, fmt.Errorf("api returned %d: %s", resp.StatusCode, res.Error)
	}
	return res, nil
}

func printTimingResult(w io.Writer, res timingResult) {
	if !res.Success {
		color.New(color.FgYellow).Fprintf(w, "Report not sent: %s\n", res.Message)
		return
	}
	color.New(color.FgGreen).Fprintf(w, "Report sent: %d units", res.Entries)
	if res.Errors > 0 {
		color.New(color.FgRed).Fprintf(w, ", %d failed", res.Errors)
	}
	fmt.Fprintln(w)
}

func printReportLog(w io.Writer, l models.ReportLog) {
	color.New(color.FgCyan).Fprintf(w, "%s  %-6s", l.CreatedAt.Local().Format(time.DateTime), l.Kind)
	fmt.Fprintf(w, "  chat %d  entries %d", l.TargetChatID, l.EntryCount)
	if l.ErrorCount > 0 {
		color.New(color.FgRed).Fprintf(w, "  errors %d", l.ErrorCount)
	}
	if l.Destination != "" {
		fmt.Fprintf(w, "  dest %s", l.Destination)
	}
	fmt.Fprintln(w)
}
