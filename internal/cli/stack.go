package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bprzybysz/integra/internal/config"
	"github.com/bprzybysz/integra/internal/engine"
	"github.com/bprzybysz/integra/internal/notify"
)

var (
	stackWindow string
	stackDate   string
	stackGroup  string
)

var stackCmd = &cobra.Command{
	Use:   "stack",
	Short: "Show aggregated task scores",
	Long: "Sums final scores of closed tasks over a day, an ISO week, or all time,\n" +
		"optionally grouped by origin and nature.",
	RunE: runStack,
}

func init() {
	stackCmd.Flags().StringVar(&stackWindow, "window", engine.WindowDay, "day, iso_week, or total")
	stackCmd.Flags().StringVar(&stackDate, "date", "", "day or ISO week key inside the window, default current")
	stackCmd.Flags().StringVar(&stackGroup, "group", "", "comma-separated facets: origin,nature")
}

func runStack(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, eng, err := buildEngine(cfg, notify.NewConsole())
	if err != nil {
		return err
	}
	defer db.Close()

	var groupBy []string
	if stackGroup != "" {
		groupBy = strings.Split(stackGroup, ",")
	}
	res, err := eng.Stack(stackWindow, stackDate, groupBy)
	if err != nil {
		return err
	}

	header := "stack " + res.Window
	if res.Key != "" {
		header += " " + res.Key
	}
	fmt.Println(styleTitle.Render(header))
	fmt.Printf("total %s from %d task(s)\n", styleH2.Render(fmt.Sprintf("%d", res.Total)), res.Tasks)
	if res.Skipped > 0 {
		fmt.Println(styleMuted.Render(fmt.Sprintf("%d task(s) skipped for malformed labels", res.Skipped)))
	}

	if len(res.Groups) > 0 {
		keys := make([]string, 0, len(res.Groups))
		for k := range res.Groups {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Println()
		for _, k := range keys {
			fmt.Printf("  %-28s %d\n", k, res.Groups[k])
		}
	}
	return nil
}
