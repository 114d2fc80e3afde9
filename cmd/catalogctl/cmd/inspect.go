package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/catalog/internal/indexer/manifest"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/postgres"
)

type inspectReport struct {
	Path      string          `json:"path"`
	Size      int64           `json:"size_bytes"`
	Checksum  string          `json:"checksum"`
	Version   uint32          `json:"version"`
	Documents uint32          `json:"documents"`
	Terms     uint32          `json:"terms"`
	Analyzer  string          `json:"analyzer"`
	TFScheme  string          `json:"tf_scheme"`
	Manifest  *manifest.Build `json:"manifest,omitempty"`
}

func newInspectCmd(opts *options) *cobra.Command {
	var (
		withManifest bool
		jsonOutput   bool
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the header of an index file and, optionally, its build manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := segment.Stat(opts.indexPath)
			if err != nil {
				return err
			}
			report := inspectReport{
				Path:      info.Path,
				Size:      info.Size,
				Checksum:  fmt.Sprintf("%08x", info.Checksum),
				Version:   info.Header.Version,
				Documents: info.Header.DocCount,
				Terms:     info.Header.TermCount,
				Analyzer:  info.Analyzer,
				TFScheme:  string(info.TFScheme),
			}

			if withManifest {
				db, err := postgres.New(opts.cfg.Postgres)
				if err != nil {
					return err
				}
				defer db.Close()
				b, err := manifest.New(db).Current(cmd.Context(), opts.indexPath)
				if err != nil {
					return err
				}
				report.Manifest = &b
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			fmt.Fprintf(out, "path:       %s\n", report.Path)
			fmt.Fprintf(out, "size:       %d bytes\n", report.Size)
			fmt.Fprintf(out, "checksum:   %s\n", report.Checksum)
			fmt.Fprintf(out, "version:    %d\n", report.Version)
			fmt.Fprintf(out, "documents:  %d\n", report.Documents)
			fmt.Fprintf(out, "terms:      %d\n", report.Terms)
			fmt.Fprintf(out, "analyzer:   %s\n", report.Analyzer)
			fmt.Fprintf(out, "tf scheme:  %s\n", report.TFScheme)
			if b := report.Manifest; b != nil {
				match := "yes"
				if fmt.Sprintf("%08x", b.Checksum) != report.Checksum {
					match = "NO"
				}
				fmt.Fprintf(out, "built:      %s from %s in %s\n", b.BuiltAt.Format("2006-01-02 15:04:05"), b.Source, b.Duration)
				fmt.Fprintf(out, "skipped:    %d\n", b.Skipped)
				fmt.Fprintf(out, "manifest checksum matches: %s\n", match)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withManifest, "manifest", false, "look up the build manifest in PostgreSQL")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")
	return cmd
}
