package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var flushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Deliver every persisted event now",
	Long: `Drain the durable queue and report its contents, waiting for the outcome.

Events that fail again are retried and then persisted once more.`,
	Args: cobra.NoArgs,
	RunE: runFlush,
}

func init() {
	rootCmd.AddCommand(flushCmd)
}

func runFlush(cmd *cobra.Command, args []string) error {
	a, err := newApp(appConfig, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireEndpoint(); err != nil {
		return err
	}

	pending, err := a.queue.Len(cmd.Context())
	if err != nil {
		return err
	}
	if pending == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty, nothing to flush")
		return nil
	}

	out := newOutcome()
	a.manager.FlushPersisted(out.success, out.failure)
	a.manager.Wait()

	delivered, failed := out.counts()
	remaining, err := a.queue.Len(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Delivered %d of %d event(s), %d failed attempt(s), %d still queued\n",
		delivered, pending, failed, remaining)
	return nil
}
