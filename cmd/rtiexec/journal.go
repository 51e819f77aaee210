package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jathurchan/rtiexec/journal"
	"github.com/jathurchan/rtiexec/types"
)

type journalOptions struct {
	DBPath     string
	Federation string
	Federate   uint64
	Kind       string
	Limit      int
}

func newJournalCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &journalOptions{}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Print the callbacks recorded in a journal database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(cmd.Context(), cmd.OutOrStdout(), rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "path to the journal database (required)")
	cmd.Flags().StringVar(&opts.Federation, "federation", "", "only this federation")
	cmd.Flags().Uint64Var(&opts.Federate, "federate", 0, "only callbacks delivered to this federate handle")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only this callback kind, e.g. TimeAdvanceGrant")
	cmd.Flags().IntVar(&opts.Limit, "limit", 100, "maximum number of records")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}

func runJournal(ctx context.Context, w io.Writer, rootOpts *rootOptions, opts *journalOptions) error {
	if _, err := os.Stat(opts.DBPath); err != nil {
		return usageErrorf("journal database: %v", err)
	}
	j, err := journal.Open(opts.DBPath)
	if err != nil {
		return err
	}
	defer j.Close()

	records, err := j.List(ctx, journal.Filter{
		Federation: opts.Federation,
		Federate:   types.FederateHandle(opts.Federate),
		Kind:       opts.Kind,
		Limit:      opts.Limit,
	})
	if err != nil {
		return err
	}

	if rootOpts.Format == "json" {
		return writeRecordsJSON(w, records)
	}
	return writeRecordsText(w, records)
}

type recordJSON struct {
	Seq        uint64          `json:"seq"`
	Federation string          `json:"federation"`
	Federate   uint64          `json:"federate"`
	Kind       string          `json:"kind"`
	Body       json.RawMessage `json:"body"`
	RecordedAt time.Time       `json:"recorded_at"`
}

func writeRecordsJSON(w io.Writer, records []journal.Record) error {
	out := make([]recordJSON, len(records))
	for i, r := range records {
		out[i] = recordJSON{
			Seq:        r.Seq,
			Federation: r.Federation,
			Federate:   uint64(r.Federate),
			Kind:       r.Kind,
			Body:       r.Body,
			RecordedAt: r.RecordedAt,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

var recordColumns = []string{"seq", "recorded_at", "federation", "federate", "kind", "body"}

func writeRecordsText(w io.Writer, records []journal.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No records.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	caser := cases.Title(language.English)
	headers := make([]string, len(recordColumns))
	for i, c := range recordColumns {
		headers[i] = caser.String(strings.ReplaceAll(c, "_", " "))
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
			r.Seq,
			r.RecordedAt.Format(time.RFC3339Nano),
			r.Federation,
			r.Federate,
			r.Kind,
			string(r.Body),
		)
	}
	return tw.Flush()
}
