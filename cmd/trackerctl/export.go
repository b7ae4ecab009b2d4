package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

func (a *app) exportCmd() *cobra.Command {
	var (
		format  string
		out     string
		archive bool
	)
	cmd := &cobra.Command{
		Use:   "export <project-id>",
		Short: "Download a progress report as csv, xlsx or pdf",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.api()
			if err != nil {
				return err
			}
			if archive {
				ar, err := client.ArchiveExport(cmd.Context(), args[0], format)
				if err != nil {
					return err
				}
				a.printf("Stored as %s\n%s\nLink expires %s\n", ar.Key, ar.URL, ar.ExpiresAt.Local().Format(time.RFC1123))
				return nil
			}

			data, name, err := client.Export(cmd.Context(), args[0], format)
			if err != nil {
				return err
			}
			path := out
			if path == "" && name != "" {
				path = filepath.Base(name)
			}
			if path == "" {
				path = "project-progress." + format
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			a.printf("Wrote %s (%d bytes).\n", filepath.Clean(path), len(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "csv, xlsx or pdf")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default is the server's file name)")
	cmd.Flags().BoolVar(&archive, "archive", false, "store the export in object storage and print a download link")
	return cmd
}
