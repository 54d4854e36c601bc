package cli

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Mutueye/qst-tracking-monorepo/internal/beacon"
	"github.com/Mutueye/qst-tracking-monorepo/internal/events"
	"github.com/Mutueye/qst-tracking-monorepo/internal/guid"
)

var (
	decodeFormat    string
	decodeQueryName string
	decodeStrict    bool
)

var decodeCmd = &cobra.Command{
	Use:   "decode <payload|url>",
	Short: "Decode a beacon payload",
	Long: `Print the events carried by a beacon. The argument is either the bare
base64 payload or a full report URL.

Examples:
  qst-track decode W3sidWlkIjoibm9sb2dpbiJ9XQ==
  qst-track decode 'https://collector.example.com/t.gif?payload=W3sidWlkIjoibm9sb2dpbiJ9XQ==' -f yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

func init() {
	decodeCmd.Flags().StringVarP(&decodeFormat, "format", "f", "json", "Output format (table, json, yaml)")
	decodeCmd.Flags().StringVar(&decodeQueryName, "query", beacon.DefaultQueryName, "Query parameter carrying the payload")
	decodeCmd.Flags().BoolVar(&decodeStrict, "strict", false, "Fail when an event carries a malformed guid")

	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, args []string) error {
	payload, err := extractPayload(args[0], decodeQueryName)
	if err != nil {
		return err
	}

	batch, err := events.Decode(payload)
	if err != nil {
		return err
	}

	if err := checkGUIDs(batch); err != nil {
		if decodeStrict {
			return err
		}
		log.Warn().Err(err).Msg("Payload carries malformed guids")
	}

	return writeEvents(cmd.OutOrStdout(), batch, decodeFormat)
}

// extractPayload returns the raw payload from a report URL, or s itself when
// it is not a URL. The payload is read verbatim because standard base64 may
// contain '+' which query decoding would turn into a space.
func extractPayload(s, queryName string) (string, error) {
	if !strings.Contains(s, "://") {
		return s, nil
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("parsing url: %w", err)
	}

	if queryName == "" {
		queryName = beacon.DefaultQueryName
	}

	for _, pair := range strings.Split(u.RawQuery, "&") {
		key, value, _ := strings.Cut(pair, "=")
		if key == queryName {
			return value, nil
		}
	}

	return "", fmt.Errorf("url has no %q parameter", queryName)
}

// checkGUIDs reports every event whose guid is not a canonical identifier.
func checkGUIDs(batch []events.Event) error {
	var errs []error
	for i, e := range batch {
		if _, err := guid.Parse(e.GUID); err != nil {
			errs = append(errs, fmt.Errorf("event %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
