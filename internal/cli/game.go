package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mcoot/searchgame/internal/api/response"
)

func newGameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Play timed game sessions",
	}

	cmd.AddCommand(newGameStartCmd())
	cmd.AddCommand(newGameCompleteCmd())

	return cmd
}

func newGameStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start a game session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()

			var result response.StartResponse
			if err := client.Post(ctx, "/api/game/start", nil, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newGameCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <session-id> <total-time>",
		Short: "Complete a game session",
		Long: `Complete a game session, reporting the elapsed time in hundredths
of a second. The server substitutes its own measurement when the
reported time is too far from it.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			totalTime, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid total time %q: %w", args[1], err)
			}

			ctx, cancel := requestContext(cmd)
			defer cancel()

			var result response.CompleteResponse
			body := map[string]any{"sessionId": args[0], "totalTime": totalTime}
			if err := client.Post(ctx, "/api/game/complete", body, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newLeaderboardCmd() *cobra.Command {
	var withContext bool

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()

			out := NewOutput(cfg.Output)
			if withContext {
				var result response.ContextLeaderboardResponse
				if err := client.Get(ctx, "/api/game/leaderboard-with-context", &result); err != nil {
					return err
				}
				out.Print(result)
				return nil
			}

			var result response.LeaderboardResponse
			if err := client.Get(ctx, "/api/game/leaderboard", &result); err != nil {
				return err
			}
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&withContext, "context", false, "Include your own rank and neighbours (requires a token)")

	return cmd
}
