package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
)

func newCorpusCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Manage stored training corpora",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add NAME [FILE|-]",
			Short: "Store a corpus, replacing any corpus with the same name",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.runCorpusAdd(cmd, args)
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List stored corpora",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.runCorpusList(cmd)
			},
		},
		&cobra.Command{
			Use:     "rm NAME",
			Aliases: []string{"remove"},
			Short:   "Remove a corpus and its run history",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := a.openStore()
				if err != nil {
					return err
				}
				if err = store.RemoveCorpus(cmd.Context(), args[0]); err != nil {
					return err
				}
				_, err = fmt.Fprintf(a.stdout, "removed corpus %q\n", args[0])
				return err
			},
		},
		&cobra.Command{
			Use:   "export NAME [FILE]",
			Short: "Export a corpus and its runs as JSON",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.runCorpusExport(cmd, args)
			},
		},
		&cobra.Command{
			Use:   "import FILE|-",
			Short: "Import a corpus exported with 'corpus export'",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.runCorpusImport(cmd, args[0])
			},
		},
	)
	return cmd
}

// openInput opens path for reading, with "-" or an empty path meaning stdin.
func (a *app) openInput(path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return a.stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func (a *app) runCorpusAdd(cmd *cobra.Command, args []string) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	path := ""
	if len(args) == 2 {
		path = args[1]
	}
	r, release, err := a.openInput(path)
	if err != nil {
		return fmt.Errorf("failed to open corpus text: %w", err)
	}
	defer release()

	info, err := store.AddCorpus(cmd.Context(), args[0], r)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.stdout, "stored corpus %q: %s characters, %s\n",
		info.Name, humanize.Comma(int64(info.Chars)), humanize.Bytes(uint64(info.Bytes)))
	return err
}

func (a *app) runCorpusList(cmd *cobra.Command) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	infos, err := store.ListCorpora(cmd.Context())
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		_, err = fmt.Fprintln(a.stdout, "no corpora stored")
		return err
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCHARS\tSIZE\tADDED")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			info.Name,
			humanize.Comma(int64(info.Chars)),
			humanize.Bytes(uint64(info.Bytes)),
			humanize.Time(info.CreatedAt))
	}
	return tw.Flush()
}

func (a *app) runCorpusExport(cmd *cobra.Command, args []string) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	if len(args) == 1 || args[1] == "-" {
		return store.ExportCorpus(cmd.Context(), args[0], a.stdout)
	}
	var buf bytes.Buffer
	if err = store.ExportCorpus(cmd.Context(), args[0], &buf); err != nil {
		return err
	}
	if err = atomic.WriteFile(args[1], &buf); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

func (a *app) runCorpusImport(cmd *cobra.Command, path string) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	r, release, err := a.openInput(path)
	if err != nil {
		return fmt.Errorf("failed to open export: %w", err)
	}
	defer release()

	info, err := store.ImportCorpus(cmd.Context(), r)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.stdout, "imported corpus %q: %s characters\n", info.Name, humanize.Comma(int64(info.Chars)))
	return err
}
