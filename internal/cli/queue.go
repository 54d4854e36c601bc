package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Mutueye/qst-tracking-monorepo/internal/events"
)

var (
	queueFormat  string
	statusFormat string
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect the durable event queue",
	Long: `Inspect or reset the durable queue of undelivered events.

Examples:
  qst-track queue count
  qst-track queue status
  qst-track queue list --format yaml
  qst-track queue clear`,
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted events",
	Args:  cobra.NoArgs,
	RunE:  runQueueList,
}

var queueCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of persisted events",
	Args:  cobra.NoArgs,
	RunE:  runQueueCount,
}

var queueClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every persisted event without delivering it",
	Args:  cobra.NoArgs,
	RunE:  runQueueClear,
}

var queueStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show storage backend, schema version and queue depth",
	Args:  cobra.NoArgs,
	RunE:  runQueueStatus,
}

func init() {
	queueListCmd.Flags().StringVarP(&queueFormat, "format", "f", "table", "Output format (table, json, yaml)")
	queueStatusCmd.Flags().StringVarP(&statusFormat, "format", "f", "table", "Output format (table, json, yaml)")

	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueCountCmd)
	queueCmd.AddCommand(queueClearCmd)
	queueCmd.AddCommand(queueStatusCmd)

	rootCmd.AddCommand(queueCmd)
}

func runQueueList(cmd *cobra.Command, args []string) error {
	a, err := newApp(appConfig, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	batch, err := a.queue.Peek(cmd.Context())
	if err != nil {
		return err
	}

	return writeEvents(cmd.OutOrStdout(), batch, queueFormat)
}

func runQueueCount(cmd *cobra.Command, args []string) error {
	a, err := newApp(appConfig, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.queue.Len(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), n)
	return nil
}

func runQueueClear(cmd *cobra.Command, args []string) error {
	a, err := newApp(appConfig, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.queue.Len(cmd.Context())
	if err != nil {
		return err
	}
	if err := a.queue.Clear(cmd.Context()); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared %d event(s)\n", n)
	return nil
}

// queueStatus describes where persisted events live.
type queueStatus struct {
	Driver        string `json:"driver" yaml:"driver"`
	Compression   string `json:"compression" yaml:"compression"`
	Path          string `json:"path,omitempty" yaml:"path,omitempty"`
	SchemaVersion int    `json:"schema_version,omitempty" yaml:"schema_version,omitempty"`
	Pending       int    `json:"pending" yaml:"pending"`
}

func runQueueStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(appConfig, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	st := queueStatus{
		Driver:      appConfig.Storage.Driver,
		Compression: appConfig.Storage.Compression,
	}
	if a.db != nil {
		st.Path = a.db.Path()
		if st.SchemaVersion, err = a.db.SchemaVersion(ctx); err != nil {
			return err
		}
	}
	if st.Pending, err = a.queue.Len(ctx); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	switch statusFormat {
	case "json":
		data, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err

	case "yaml", "yml":
		return yaml.NewEncoder(w).Encode(st)

	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "Driver:\t%s\n", st.Driver)
		fmt.Fprintf(tw, "Compression:\t%s\n", st.Compression)
		if st.Path != "" {
			fmt.Fprintf(tw, "Path:\t%s\n", st.Path)
			fmt.Fprintf(tw, "Schema version:\t%d\n", st.SchemaVersion)
		}
		fmt.Fprintf(tw, "Pending events:\t%d\n", st.Pending)
		return tw.Flush()

	default:
		return fmt.Errorf("unknown format %q (use table, json or yaml)", statusFormat)
	}
}

// writeEvents renders batch as a table, indented JSON or YAML.
func writeEvents(w io.Writer, batch []events.Event, format string) error {
	if batch == nil {
		batch = []events.Event{}
	}

	switch format {
	case "json":
		data, err := json.MarshalIndent(batch, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err

	case "yaml", "yml":
		data, err := yaml.Marshal(batch)
		if err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		_, err = w.Write(data)
		return err

	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "GUID\tTYPE\tPLATFORM\tUSER\tLOCAL TIME\tURL")
		for _, e := range batch {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", e.GUID, e.Type, e.Platform, e.UserID, e.LocalTime, e.URL)
		}
		return tw.Flush()

	default:
		return fmt.Errorf("unknown format %q (use table, json or yaml)", format)
	}
}
