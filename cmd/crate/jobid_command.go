package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/jobid"
)

func newJobIDCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "jobid",
		Short:       "Encode or decode download job identifiers",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}
	cmd.AddCommand(newJobIDEncodeCommand(), newJobIDDecodeCommand())
	return cmd
}

func newJobIDEncodeCommand() *cobra.Command {
	var playlist, album string

	cmd := &cobra.Command{
		Use:   "encode <track-id> <quality>",
		Short: "Compose a job id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseTrackID(args[0])
			if err != nil {
				return err
			}
			if playlist != "" && album != "" {
				return errors.New("--playlist and --album are mutually exclusive")
			}
			origin := domain.NoOrigin()
			switch {
			case playlist != "":
				origin = domain.PlaylistOrigin(playlist)
			case album != "":
				origin = domain.AlbumOrigin(album)
			}
			fmt.Fprintln(cmd.OutOrStdout(), jobid.Encode(id, domain.Quality(args[1]), origin))
			return nil
		},
	}
	cmd.Flags().StringVar(&playlist, "playlist", "", "Playlist the download belongs to")
	cmd.Flags().StringVar(&album, "album", "", "Album the download belongs to")
	return cmd
}

func newJobIDDecodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <job-id>...",
		Short: "Show what a job id carries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(args))
			for _, arg := range args {
				job := jobid.Decode(arg)
				track := "-"
				if job.Valid() {
					track = job.TrackID.String()
				}
				rows = append(rows, []string{arg, track, string(job.Quality), job.Origin.Key(), job.String()})
			}
			cols := []column{
				{title: "Job ID"},
				{title: "Track", numeric: true},
				{title: "Quality"},
				{title: "Origin"},
				{title: "Canonical"},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(cols, rows))
			return nil
		},
	}
}
