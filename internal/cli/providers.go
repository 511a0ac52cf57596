package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/sherpa/internal/llm"
)

const checkTimeout = 30 * time.Second

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Inspect LLM providers",
}

var providersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List supported providers and their default models",
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PROVIDER\tDEFAULT MODEL\tAPI KEY")
		for _, p := range llm.Catalog {
			key := p.KeyEnv
			if key == "" {
				key = "(none)"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Name, p.DefaultModel, key)
		}
		return tw.Flush()
	},
}

var providersCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Send a test prompt to the configured provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(nil)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Checking %s...\n", e.cfg.LLM.Provider)

		// The cache is bypassed so the request reaches the provider.
		client, err := llm.New(e.cfg.LLM.Provider, llm.Options{
			Model:     e.cfg.LLM.Model,
			APIKeyEnv: e.cfg.LLM.APIKeyEnv,
			BaseURL:   e.cfg.LLM.BaseURL,
			MaxTokens: 16,
			Timeout:   checkTimeout,
		})
		if err != nil {
			checkFailed(err)
			return nil
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
		defer cancel()
		start := time.Now()
		if _, err := client.Complete(ctx, "Respond with exactly: ok"); err != nil {
			checkFailed(err)
			return nil
		}
		fmt.Fprintf(out, "OK: %s/%s responded in %s\n", client.Name(), client.Model(),
			time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func checkFailed(err error) {
	if llm.IsAuthError(err) {
		fail(ExitAuthError, err)
		return
	}
	fail(ExitRuntimeError, err)
}

func init() {
	providersCmd.AddCommand(providersListCmd)
	providersCmd.AddCommand(providersCheckCmd)
}
