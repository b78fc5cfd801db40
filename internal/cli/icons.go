package cli

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mcoot/searchgame/internal/api/response"
)

func newIconsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "icons",
		Short: "Browse icon sets",
	}

	cmd.AddCommand(newIconsListCmd())
	cmd.AddCommand(newIconsRandomCmd())

	return cmd
}

func newIconsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active icon sets",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()

			var result response.IconSetsResponse
			if err := client.Get(ctx, "/api/icons/sets", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newIconsRandomCmd() *cobra.Command {
	var seed string

	cmd := &cobra.Command{
		Use:   "random [count]",
		Short: "Draw random icon sets with regenerated grids",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/icons/sets/random"
			if len(args) == 1 {
				if _, err := strconv.Atoi(args[0]); err != nil {
					return fmt.Errorf("invalid count %q", args[0])
				}
				path += "/" + args[0]
			}
			if seed != "" {
				path += "?" + url.Values{"seed": {seed}}.Encode()
			}

			ctx, cancel := requestContext(cmd)
			defer cancel()

			var result response.IconSetsResponse
			if err := client.Get(ctx, path, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&seed, "seed", "", "Seed for a reproducible draw")

	return cmd
}
