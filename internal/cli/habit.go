package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bprzybysz/integra/internal/client"
)

var (
	habitMissed   bool
	habitDuration int
	habitDate     string
)

var habitCmd = &cobra.Command{
	Use:   "habit <habit>",
	Short: "Record a habit for the day",
	Long: "Marks a habit completed (or missed with --missed) for today or --date.\n" +
		"Resubmitting replaces the record; streaks settle at day close.",
	Args: cobra.ExactArgs(1),
	RunE: runHabit,
}

func init() {
	habitCmd.Flags().BoolVar(&habitMissed, "missed", false, "record a miss instead of a completion")
	habitCmd.Flags().IntVar(&habitDuration, "duration", 0, "duration in minutes")
	habitCmd.Flags().StringVar(&habitDate, "date", "", "day (YYYY-MM-DD), default today")
}

func runHabit(cmd *cobra.Command, args []string) error {
	body := map[string]any{"habit": args[0]}
	if habitMissed {
		body["completed"] = false
	}
	if habitDuration > 0 {
		body["duration_min"] = habitDuration
	}
	if habitDate != "" {
		body["day"] = habitDate
	}

	c := client.NewClient()
	if !c.Healthy() {
		return fmt.Errorf("daemon not reachable; start it with `integra serve`")
	}

	payload, _ := json.Marshal(body)
	data, err := c.Post("/api/habits", payload)
	if err != nil {
		return err
	}

	var res struct {
		Habit       string `json:"habit"`
		Day         string `json:"day"`
		Completed   bool   `json:"completed"`
		DurationMin int    `json:"duration_min"`
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	mark := styleGood.Render("done")
	if !res.Completed {
		mark = styleBad.Render("missed")
	}
	if res.DurationMin > 0 {
		fmt.Printf("%s %s: %s (%d min)\n", res.Day, res.Habit, mark, res.DurationMin)
	} else {
		fmt.Printf("%s %s: %s\n", res.Day, res.Habit, mark)
	}
	return nil
}
