package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bprzybysz/integra/internal/client"
	"github.com/bprzybysz/integra/internal/ledger"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Task ledger",
}

var (
	taskOrigin   string
	taskNature   string
	taskCategory string
)

var taskAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Open a task",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTaskAdd,
}

var (
	taskBase  int
	taskBonus int
	taskDay   string
)

var taskCloseCmd = &cobra.Command{
	Use:   "close <id>",
	Short: "Close a task with scoring",
	Long: "Closes a task and settles its final score. Reward tasks earn the streak\n" +
		"multiplier on top of base+bonus; penance and diary closures advance their\n" +
		"penance toward completion.",
	Args: cobra.ExactArgs(1),
	RunE: runTaskClose,
}

var taskState string

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Args:  cobra.NoArgs,
	RunE:  runTaskList,
}

func init() {
	taskAddCmd.Flags().StringVar(&taskOrigin, "origin", ledger.OriginPlanned, "planned, user-request, or choice")
	taskAddCmd.Flags().StringVar(&taskNature, "nature", ledger.NatureJob, "job or reward")
	taskAddCmd.Flags().StringVar(&taskCategory, "category", "", "free-form category label")

	taskCloseCmd.Flags().IntVar(&taskBase, "base", 1, "base score")
	taskCloseCmd.Flags().IntVar(&taskBonus, "bonus", 0, "bonus score")
	taskCloseCmd.Flags().StringVar(&taskDay, "day", "", "close day (YYYY-MM-DD), default today")

	taskListCmd.Flags().StringVar(&taskState, "state", "open", "open or closed")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskCloseCmd)
	taskCmd.AddCommand(taskListCmd)
}

type taskWire struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Labels    []string `json:"labels"`
	ClosedDay string   `json:"closed_day"`
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	body := map[string]any{
		"title":  strings.Join(args, " "),
		"origin": taskOrigin,
		"nature": taskNature,
	}
	if taskCategory != "" {
		body["category"] = taskCategory
	}

	c := client.NewClient()
	if !c.Healthy() {
		return fmt.Errorf("daemon not reachable; start it with `integra serve`")
	}

	payload, _ := json.Marshal(body)
	data, err := c.Post("/api/tasks", payload)
	if err != nil {
		return err
	}

	var t taskWire
	if err := json.Unmarshal(data, &t); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	fmt.Printf("%s %s  %s\n", styleGood.Render("opened"), t.ID, t.Title)
	fmt.Println(styleMuted.Render("  " + strings.Join(t.Labels, " ")))
	return nil
}

func runTaskClose(cmd *cobra.Command, args []string) error {
	body := map[string]any{
		"base":  taskBase,
		"bonus": taskBonus,
	}
	if taskDay != "" {
		body["day"] = taskDay
	}

	c := client.NewClient()
	if !c.Healthy() {
		return fmt.Errorf("daemon not reachable; start it with `integra serve`")
	}

	payload, _ := json.Marshal(body)
	data, err := c.Post("/api/tasks/"+args[0]+"/close", payload)
	if err != nil {
		return err
	}

	var t taskWire
	if err := json.Unmarshal(data, &t); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	line := fmt.Sprintf("%s %s  %s", styleGood.Render("closed"), t.ID, t.Title)
	if f, err := ledger.Parse(t.Labels); err == nil {
		line += fmt.Sprintf("  %s", styleH2.Render(fmt.Sprintf("score %d", f.Score)))
	}
	fmt.Println(line)
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()
	led := ledger.NewLocal(db)

	var tasks []ledger.Task
	switch taskState {
	case "open":
		tasks, err = led.OpenTasks()
	case "closed":
		tasks, err = led.AllClosedTasks()
	default:
		return fmt.Errorf("state must be open or closed")
	}
	if err != nil {
		return err
	}

	if len(tasks) == 0 {
		fmt.Printf("no %s tasks\n", taskState)
		return nil
	}
	for _, t := range tasks {
		if t.Closed() {
			score := styleMuted.Render("unscored")
			if f, err := ledger.Parse(t.Labels); err == nil {
				score = fmt.Sprintf("score %d", f.Score)
			}
			fmt.Printf("%s  %s  %-32s %s\n", t.ClosedDay, t.ID, t.Title, score)
		} else {
			fmt.Printf("%s  %-32s %s\n", t.ID, t.Title, styleMuted.Render(strings.Join(t.Labels, " ")))
		}
	}
	return nil
}
