// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/sourcemark/internal/fetch"
	"github.com/pdiddy/sourcemark/pkg/types"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "sourcemark/0.1"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [urls...]",
	Short: "Download remote text documents into the docs directory",
	Long: `Fetch downloads markdown or plain-text documents from URLs into the
docs directory so they can be rewritten. Existing documents are skipped
and rate-limited requests are retried with backoff.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")
	fetchCmd.Flags().Int("max-retries", 0, "maximum retries on HTTP 429 (default 5)")
	fetchCmd.Flags().String("docs-dir", "docs", "directory for downloaded documents")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more document URLs")
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}
	maxRetries, _ := cmd.Flags().GetInt("max-retries")
	docsDir, _ := cmd.Flags().GetString("docs-dir")

	cfg := types.FetchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: defaultUserAgent,
		},
		DocsDir:    docsDir,
		MaxRetries: maxRetries,
	}

	client := &http.Client{
		Timeout: cfg.Timeout,
	}

	result, err := fetch.Documents(context.Background(), client, args, cfg, os.Stdout)
	if err != nil {
		return err
	}
	if result.HasFailures() {
		return fmt.Errorf("%d document(s) failed to download", result.Failed)
	}
	return nil
}
