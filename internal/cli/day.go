package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bprzybysz/integra/internal/client"
	"github.com/bprzybysz/integra/internal/clock"
	"github.com/bprzybysz/integra/internal/config"
)

var dayCmd = &cobra.Command{
	Use:   "day",
	Short: "Day lifecycle",
}

var dayCloseRecompute bool

var dayCloseCmd = &cobra.Command{
	Use:   "close [date]",
	Short: "Run the advisor for a day",
	Long: "Settles streaks, fires milestones, proposes penances, and sends the\n" +
		"advisor message for the given day (default today). Closing again is a\n" +
		"no-op unless --recompute.",
	Args: cobra.MaximumNArgs(1),
	RunE: runDayClose,
}

func init() {
	dayCloseCmd.Flags().BoolVar(&dayCloseRecompute, "recompute", false, "reclassify the day; never re-fires milestones or penances")
	dayCmd.AddCommand(dayCloseCmd)
}

func runDayClose(cmd *cobra.Command, args []string) error {
	day, err := resolveDay(args)
	if err != nil {
		return err
	}

	c := client.NewClient()
	if !c.Healthy() {
		return fmt.Errorf("daemon not reachable; start it with `integra serve`")
	}

	path := "/api/days/" + day + "/close"
	if dayCloseRecompute {
		path += "?recompute=1"
	}
	data, err := c.Post(path, nil)
	if err != nil {
		return err
	}

	var res struct {
		Snapshot struct {
			Day        string `json:"day"`
			State      string `json:"state"`
			Misses     int    `json:"misses"`
			Violations int    `json:"violations"`
		} `json:"snapshot"`
		Milestones []string `json:"milestones"`
		Penances   []struct {
			Behavior   string `json:"behavior"`
			Severity   string `json:"severity"`
			ApprovalID string `json:"approval_id"`
		} `json:"penances"`
		Message  string `json:"message"`
		Replayed bool   `json:"replayed"`
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	fmt.Printf("%s: %s (%d misses, %d violations)\n",
		res.Snapshot.Day, renderState(res.Snapshot.State), res.Snapshot.Misses, res.Snapshot.Violations)
	if res.Replayed {
		fmt.Println(styleMuted.Render("  already closed; nothing re-fired"))
		return nil
	}
	for _, m := range res.Milestones {
		fmt.Printf("  %s %s\n", styleGood.Render("milestone:"), m)
	}
	for _, p := range res.Penances {
		fmt.Printf("  %s %s penance on %s awaits approval (%s)\n",
			styleWarn.Render("penance:"), p.Severity, p.Behavior, p.ApprovalID)
	}
	if res.Message != "" {
		fmt.Println()
		fmt.Println(res.Message)
	}
	return nil
}

// resolveDay returns the argument day, or today in the configured timezone.
func resolveDay(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	ck, err := clock.New(cfg.Clock.Timezone)
	if err != nil {
		return "", err
	}
	return ck.Day(time.Now()), nil
}
