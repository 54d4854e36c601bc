package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/Mutueye/qst-tracking-monorepo/internal/beacon"
	"github.com/Mutueye/qst-tracking-monorepo/internal/events"
	"github.com/Mutueye/qst-tracking-monorepo/internal/pagectx"
)

var (
	reportType     string
	reportPlatform string
	reportBData    string
	reportLocation string
	reportUserID   string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report a single event",
	Long: `Build one event and deliver it, waiting for the outcome.

Failed deliveries are retried per tracking.retry_limit and then kept in the
durable queue; the command still exits non-zero so scripts can tell.

Examples:
  qst-track report --type page --platform obe --location https://example.com/obe
  qst-track report --type duration --platform jobfair --bdata '{"ms":5400}'`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportType, "type", "t", "", "Event type (page, click, duration, error)")
	reportCmd.Flags().StringVarP(&reportPlatform, "platform", "p", "", "Business platform tag")
	reportCmd.Flags().StringVar(&reportBData, "bdata", "", "Business payload, usually a JSON string")
	reportCmd.Flags().StringVar(&reportLocation, "location", "", "Page address (overrides tracking.location)")
	reportCmd.Flags().StringVar(&reportUserID, "user-id", "", "Raw user id (overrides tracking.user_id)")
	_ = reportCmd.MarkFlagRequired("type")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	category, err := events.ParseCategory(reportType)
	if err != nil {
		return err
	}

	cfg := *appConfig
	if cmd.Flags().Changed("user-id") {
		cfg.Tracking.UserID = reportUserID
	}

	a, err := newApp(&cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireEndpoint(); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if reportLocation != "" {
		ctx = pagectx.WithLocation(ctx, reportLocation)
	}

	params := events.Params{
		Type:     category,
		Platform: events.Platform(reportPlatform),
		BData:    reportBData,
	}

	out := newOutcome()
	a.manager.ReportOne(ctx, params, out.success, out.failure)
	a.manager.Wait()

	delivered, failed := out.counts()
	if delivered == 0 {
		if err := out.err(); err != nil {
			return fmt.Errorf("delivery failed after %d attempt(s), event kept in queue: %w", failed, err)
		}
		return fmt.Errorf("event was not delivered")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Event delivered (%d failed attempt(s))\n", failed)
	return nil
}

// outcome tallies callback invocations across delivery goroutines.
type outcome struct {
	mu        sync.Mutex
	delivered int
	failed    int
	lastErr   error
}

func newOutcome() *outcome {
	return &outcome{}
}

func (o *outcome) success(batch []events.Event, _ beacon.Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.delivered += len(batch)
}

func (o *outcome) failure(_ []events.Event, res beacon.Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed++
	o.lastErr = res.Err
}

func (o *outcome) err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

func (o *outcome) counts() (delivered, failed int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.delivered, o.failed
}
