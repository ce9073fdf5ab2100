package cli

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

// NewSyncCmd flushes the offline score buffer once and prints the result.
// With --dry-run it prints the pending entries instead.
func NewSyncCmd(configPath *string) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push buffered offline scores to the remote store",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDeps(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer d.Close()

			if dryRun {
				return printJSON(cmd.OutOrStdout(), d.services.Scores.Pending(cmd.Context()))
			}
			res, err := d.services.Scores.Flush(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print pending entries without pushing them")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
