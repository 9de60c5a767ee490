package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bprzybysz/integra/internal/client"
)

var (
	useAt      string
	useAdd     bool
	useUnit    string
	useHungry  bool
	useAngry   bool
	useLonely  bool
	useTired   bool
	useCraving int64
	useNote    string
)

var useCmd = &cobra.Command{
	Use:   "use <behavior> <amount>",
	Short: "Report usage of a regulated behavior",
	Long: "Reports an amount against the behavior's weekly quota and prints the\n" +
		"classification. Repeating a report for the same day replaces it; --add\n" +
		"folds the amount into the day's total instead.",
	Args: cobra.ExactArgs(2),
	RunE: runUse,
}

func init() {
	useCmd.Flags().StringVar(&useAt, "at", "", "event time (RFC 3339), default now")
	useCmd.Flags().BoolVar(&useAdd, "add", false, "add to the day's total instead of replacing it")
	useCmd.Flags().StringVar(&useUnit, "unit", "", "unit recorded with the event")
	useCmd.Flags().BoolVar(&useHungry, "hungry", false, "HALT: hungry")
	useCmd.Flags().BoolVar(&useAngry, "angry", false, "HALT: angry")
	useCmd.Flags().BoolVar(&useLonely, "lonely", false, "HALT: lonely")
	useCmd.Flags().BoolVar(&useTired, "tired", false, "HALT: tired")
	useCmd.Flags().Int64Var(&useCraving, "craving", -1, "craving intensity 0-10")
	useCmd.Flags().StringVar(&useNote, "note", "", "context note")
}

func runUse(cmd *cobra.Command, args []string) error {
	amount, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("amount %q: %w", args[1], err)
	}

	body := map[string]any{
		"behavior": args[0],
		"amount":   amount,
	}
	if useAt != "" {
		body["at"] = useAt
	}
	if useAdd {
		body["add"] = true
	}
	if useUnit != "" {
		body["unit"] = useUnit
	}
	if useHungry {
		body["hungry"] = true
	}
	if useAngry {
		body["angry"] = true
	}
	if useLonely {
		body["lonely"] = true
	}
	if useTired {
		body["tired"] = true
	}
	if useCraving >= 0 {
		body["craving"] = useCraving
	}
	if useNote != "" {
		body["note"] = useNote
	}

	c := client.NewClient()
	if !c.Healthy() {
		return fmt.Errorf("daemon not reachable; start it with `integra serve`")
	}

	payload, _ := json.Marshal(body)
	data, err := c.Post("/api/usage", payload)
	if err != nil {
		return err
	}

	var res struct {
		Behavior  string   `json:"behavior"`
		Day       string   `json:"day"`
		Class     string   `json:"class"`
		Score     int      `json:"score"`
		WeekIndex int      `json:"week_index"`
		Ceiling   float64  `json:"ceiling"`
		WeekTotal float64  `json:"week_total"`
		Unit      string   `json:"unit"`
		UnitsOver float64  `json:"units_over"`
		Reasons   []string `json:"reasons"`
		Coaching  bool     `json:"coaching"`
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	fmt.Printf("%s %s: %s (score %d)\n", res.Day, res.Behavior, renderClass(res.Class), res.Score)
	fmt.Printf("  week %d: %s/%s %s\n", res.WeekIndex, ftoa(res.WeekTotal), ftoa(res.Ceiling), res.Unit)
	if res.UnitsOver > 0 {
		fmt.Printf("  %s\n", styleBad.Render(fmt.Sprintf("%s %s over the ceiling", ftoa(res.UnitsOver), res.Unit)))
	}
	if len(res.Reasons) > 0 {
		fmt.Printf("  blocked: %s\n", strings.Join(res.Reasons, ", "))
	}
	if res.Coaching {
		fmt.Println(styleMuted.Render("  coaching questions sent; answer at the next check-in"))
	}
	return nil
}
