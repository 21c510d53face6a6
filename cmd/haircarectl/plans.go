package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

func newPlansCmd(c *cli) *cobra.Command {
	plansCmd := &cobra.Command{
		Use:   "plans",
		Short: "Report on stored care plans",
	}

	var ingredient string
	countCmd := &cobra.Command{
		Use:   "count",
		Short: "Count care plans recommending an ingredient",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ingredient = strings.TrimSpace(ingredient)
			if ingredient == "" {
				return errors.New("--ingredient is required")
			}

			repo, err := c.openRepository(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			n, err := repo.CountCarePlansWithIngredient(cmd.Context(), ingredient)
			if err != nil {
				return err
			}
			c.printf("%d\n", n)
			return nil
		},
	}
	countCmd.Flags().StringVar(&ingredient, "ingredient", "", "ingredient name, exact match")

	plansCmd.AddCommand(countCmd)
	return plansCmd
}
