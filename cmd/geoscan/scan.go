package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/geoscan/internal/application/analyzer"
	appscans "github.com/bryanwahyu/geoscan/internal/application/scans"
)

var (
	scanRegions []string
	scanJSON    bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <url>",
	Short: "Run one visibility scan in process and print the result",
	Long: `Run one visibility scan synchronously with an in-memory store.

Examples:
  geoscan scan example.com
  geoscan scan https://example.com --region us --region uk
  geoscan scan example.com --json`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringSliceVarP(&scanRegions, "region", "r", nil, "region code (repeatable, default global,us,uk,de,fr)")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "print the full report as JSON")
}

// scanOutput is the --json document.
type scanOutput struct {
	*appscans.Report
	Opportunities []analyzer.Opportunity       `json:"opportunities"`
	Keywords      []analyzer.DiscoveredKeyword `json:"keywords"`
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.svc.CreateScan(ctx, appscans.CreateScanCommand{URL: args[0], Regions: scanRegions})
	if err != nil {
		return err
	}
	if err := a.svc.Run(ctx, res.ScanID); err != nil {
		return err
	}

	rep, err := a.svc.Report(ctx, res.ScanID)
	if err != nil {
		return err
	}
	ops, err := a.svc.Opportunities(ctx, res.ScanID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if scanJSON {
		kws, err := a.svc.Keywords(ctx, res.ScanID)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(scanOutput{Report: rep, Opportunities: ops, Keywords: kws})
	}
	return printReport(out, rep, ops)
}

func printReport(w io.Writer, rep *appscans.Report, ops []analyzer.Opportunity) error {
	s := rep.Scan
	score := 0
	if s.OverallScore != nil {
		score = *s.OverallScore
	}
	fmt.Fprintf(w, "%s  score %d/100  (%s)\n\n", s.Domain, score, s.Industry)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PLATFORM\tSCORE\tQUERIES\tMENTIONS\tCITATIONS")
	for _, r := range rep.Results {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", r.Platform.DisplayName(), r.Score, r.TotalQueries, r.MentionCount, r.CitationCount)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(ops) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nOpportunities:")
	for _, o := range ops {
		fmt.Fprintf(w, "  [%s] %s\n        %s\n", o.Priority, o.Title, o.SuggestedAction)
	}
	return nil
}
