package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/mcoot/searchgame/internal/api/response"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
	errW   io.Writer
}

// NewOutput creates a new Output formatter writing to stdout and stderr
func NewOutput(format string) *Output {
	return &Output{format: format, w: os.Stdout, errW: os.Stderr}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(o.errW, string(data))
	} else {
		fmt.Fprintf(o.errW, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.HealthResponse:
		fmt.Fprintf(o.w, "Status: %s\n%s\n", v.Status, v.Message)
	case response.RegisterResponse:
		fmt.Fprintln(o.w, v.Message)
		o.printUser(v.User)
	case response.MeResponse:
		o.printUser(v.User)
	case response.StartResponse:
		fmt.Fprintln(o.w, v.Message)
		fmt.Fprintf(o.w, "Session: %s\n", v.SessionID)
		fmt.Fprintf(o.w, "Started: %s\n", v.StartTime.Format("2006-01-02 15:04:05 MST"))
	case response.CompleteResponse:
		o.printComplete(v)
	case response.LeaderboardResponse:
		o.printEntries(v.Leaderboard)
		fmt.Fprintf(o.w, "\nTotal games: %d\n", v.TotalGames)
	case response.ContextLeaderboardResponse:
		o.printContextLeaderboard(v)
	case response.IconSetsResponse:
		o.printIconSets(v.IconSets)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printUser(u response.User) {
	fmt.Fprintf(o.w, "Player: %s (%s)\n", u.Name, u.ID)
	fmt.Fprintf(o.w, "Phone: %s\n", u.Phone)
}

func (o *Output) printComplete(c response.CompleteResponse) {
	fmt.Fprintln(o.w, c.Message)
	fmt.Fprintf(o.w, "Session: %s\n", c.Session.ID)
	if c.Session.Score != nil {
		fmt.Fprintf(o.w, "Time: %s\n", formatTime(*c.Session.Score))
	}
}

func (o *Output) printContextLeaderboard(v response.ContextLeaderboardResponse) {
	o.printEntries(v.TopLeaderboard)
	if len(v.UserContext) > 0 {
		fmt.Fprintln(o.w, "  ...")
		o.printEntries(v.UserContext)
	}

	fmt.Fprintln(o.w)
	switch {
	case v.UserRank != nil:
		fmt.Fprintf(o.w, "Your rank: %d\n", *v.UserRank)
	case !v.HasUserPlayed:
		fmt.Fprintln(o.w, "You have not completed a game yet")
	}
	fmt.Fprintf(o.w, "Total games: %d\n", v.TotalGames)
}

func (o *Output) printEntries(entries []response.LeaderboardEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(o.w, "No completed games yet")
		return
	}

	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
	for _, e := range entries {
		marker := ""
		if e.IsCurrentUser != nil && *e.IsCurrentUser {
			marker = " <- you"
		}
		fmt.Fprintf(tw, "%d.\t%s\t%s\t%s%s\n", e.Rank, e.Name, e.Phone, formatTime(e.Time), marker)
	}
	_ = tw.Flush()
}

func (o *Output) printIconSets(sets []response.IconSet) {
	if len(sets) == 0 {
		fmt.Fprintln(o.w, "No icon sets")
		return
	}

	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDIFFICULTY\tICONS\tANSWER")
	for _, s := range sets {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", s.ID, s.Name, strings.Repeat("*", s.Difficulty), len(s.Icons), s.CorrectIcon)
	}
	_ = tw.Flush()
}

// formatTime renders a score in hundredths of a second as seconds
func formatTime(hundredths int64) string {
	return fmt.Sprintf("%d.%02ds", hundredths/100, hundredths%100)
}
