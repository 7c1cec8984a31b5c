package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"typologylab/internal/app"
	"typologylab/internal/domain"
)

// NewScoreCmd classifies a list of answer weights offline.
func NewScoreCmd() *cobra.Command {
	var gender string
	cmd := &cobra.Command{
		Use:   "score [weights...]",
		Short: "Classify answer weights for the built-in quiz",
		Example: `  typologylab score --gender female 2 1 -1 2 2 1 -2 1 2 1
  typologylab score --gender male -- -2 -2 -1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := domain.ParseDemographic(gender)
			if err != nil {
				return fmt.Errorf("--gender: %w", err)
			}
			weights := make([]int, 0, len(args))
			for _, arg := range args {
				w, err := strconv.Atoi(arg)
				if err != nil {
					return fmt.Errorf("weight %q is not an integer", arg)
				}
				weights = append(weights, w)
			}

			outcome, err := app.PresentFixed(app.Aggregate(weights), d)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(outcome)
		},
	}
	cmd.Flags().StringVar(&gender, "gender", "", "male or female")
	_ = cmd.MarkFlagRequired("gender")
	return cmd
}
