package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/logging"
	"github.com/mmcdole/crate/internal/store"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var clear bool

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the persisted library snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			snaps, err := store.Open(cfg.Library.StateDir, cfg.Library.Profile, logging.NullLogger())
			if err != nil {
				return err
			}
			defer snaps.Close()

			out := cmd.OutOrStdout()
			if clear {
				if err := snaps.Clear(); err != nil {
					return err
				}
				fmt.Fprintf(out, "Cleared %s\n", snaps.Path())
				return nil
			}

			doc, err := snaps.Load()
			if err != nil {
				return err
			}
			if asJSON {
				data, err := json.MarshalIndent(doc, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			fmt.Fprintln(out, renderSnapshot(doc))
			if at, ok := snaps.SavedAt(); ok {
				fmt.Fprintf(out, "%d records, saved %s\n", len(doc), at.Format(time.DateTime))
			} else {
				fmt.Fprintln(out, "No snapshot saved yet")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw snapshot document")
	cmd.Flags().BoolVar(&clear, "clear", false, "Delete the persisted snapshot")
	return cmd
}

func renderSnapshot(doc domain.SnapshotDocument) string {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, aerr := strconv.ParseInt(keys[i], 10, 64)
		b, berr := strconv.ParseInt(keys[j], 10, 64)
		if aerr != nil || berr != nil {
			return keys[i] < keys[j]
		}
		return a < b
	})

	cols := []column{
		{title: "Track", numeric: true},
		{title: "Status"},
		{title: "Quality"},
		{title: "Origin"},
		{title: "Title", maxWidth: 32},
		{title: "File", maxWidth: 48},
		{title: "Updated"},
	}
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rd := doc[k]
		origin := domain.NoOrigin()
		if rd.Origin != nil {
			origin = rd.Origin.Normalize()
		}
		title := ""
		if rd.Metadata != nil {
			title = rd.Metadata.Title
		}
		updated := ""
		if rd.UpdatedAt > 0 {
			updated = time.UnixMilli(rd.UpdatedAt).Format(time.DateTime)
		}
		rows = append(rows, []string{k, rd.Status, rd.Quality, origin.Key(), title, rd.FileURI, updated})
	}
	return renderTable(cols, rows)
}
