package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewLeaderboardCmd prints the general leaderboard, or a class leaderboard
// when --class is set.
func NewLeaderboardCmd(configPath *string) *cobra.Command {
	var classID, material string
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print a leaderboard as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if classID != "" && material == "" {
				return fmt.Errorf("--material is required with --class")
			}
			d, err := loadDeps(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer d.Close()

			if classID == "" {
				board, err := d.services.Leaderboard.General(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), board)
			}
			board, err := d.services.Leaderboard.Class(cmd.Context(), classID, material)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), board)
		},
	}
	cmd.Flags().StringVar(&classID, "class", "", "class id")
	cmd.Flags().StringVar(&material, "material", "", "material name for a class leaderboard")
	return cmd
}
