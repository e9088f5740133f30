package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newRunsCmd(a *app) *cobra.Command {
	var corpusName string
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recorded generation runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			runs, err := store.ListRuns(cmd.Context(), corpusName, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				_, err = fmt.Fprintln(a.stdout, "no runs recorded")
				return err
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCORPUS\tWINDOW\tLENGTH\tSEED\tWHEN\tOUTPUT")
			for _, run := range runs {
				seed := "-"
				if run.Seed != nil {
					seed = strconv.FormatInt(*run.Seed, 10)
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
					shortID(run.ID), run.Corpus, run.WindowLength, run.Length, seed,
					humanize.Time(run.CreatedAt), preview(run.Output, 40))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&corpusName, "corpus", "", "only show runs of this corpus")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to show (0 for all)")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// preview shortens s to at most n runes on a single line.
func preview(s string, n int) string {
	if n <= 0 {
		return ""
	}
	out := make([]rune, 0, n)
	for _, r := range s {
		if len(out) == n {
			out[n-1] = '…'
			break
		}
		if r == '\n' || r == '\t' || r == '\r' {
			r = ' '
		}
		out = append(out, r)
	}
	return string(out)
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show totals for the corpus database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			stats, err := store.GetStats(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "database\t%s\n", a.config.Server.DatabasePath)
			fmt.Fprintf(tw, "corpora\t%s\n", humanize.Comma(int64(stats.Corpora)))
			fmt.Fprintf(tw, "characters\t%s\n", humanize.Comma(int64(stats.TotalChars)))
			fmt.Fprintf(tw, "size\t%s\n", humanize.Bytes(uint64(stats.TotalBytes)))
			fmt.Fprintf(tw, "runs\t%s\n", humanize.Comma(int64(stats.Runs)))
			return tw.Flush()
		},
	}
}

func newDumpCmd(a *app) *cobra.Command {
	var source trainingSource
	var window int
	var statsOnly bool
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Train a model and print every context with its next characters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			applyIntConfig(cmd, "window", &window, a.config.Generate.WindowLength)
			model, err := a.trainModel(cmd.Context(), source, window)
			if err != nil {
				return err
			}
			if !statsOnly {
				_, err = fmt.Fprint(a.stdout, model.String())
				return err
			}
			s := model.Stats()
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "window length\t%d\n", s.WindowLength)
			fmt.Fprintf(tw, "contexts\t%s\n", humanize.Comma(int64(s.Contexts)))
			fmt.Fprintf(tw, "transitions\t%s\n", humanize.Comma(int64(s.Transitions)))
			fmt.Fprintf(tw, "distinct characters\t%d\n", s.DistinctChars)
			fmt.Fprintf(tw, "max branching\t%d\n", s.MaxBranching)
			return tw.Flush()
		},
	}
	source.addFlags(cmd.Flags())
	cmd.Flags().IntVarP(&window, "window", "w", 0, "window length (characters of context)")
	cmd.Flags().BoolVar(&statsOnly, "stats", false, "print model statistics instead of the full mapping")
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	var asTOML bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var data []byte
			var err error
			if asTOML {
				data, err = encodeConfig("config.toml", a.config)
			} else {
				data, err = json.MarshalIndent(a.config, "", "  ")
			}
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			fmt.Fprintf(a.stderr, "# %s\n", a.configPath)
			_, err = fmt.Fprintln(a.stdout, string(data))
			return err
		},
	}
	cmd.Flags().BoolVar(&asTOML, "toml", false, "print as TOML")
	return cmd
}
