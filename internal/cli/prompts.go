package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bprzybysz/integra/internal/client"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "List pending check-in prompts",
	Args:  cobra.NoArgs,
	RunE:  runPromptsList,
}

var promptsAnswerCmd = &cobra.Command{
	Use:   "answer <id> [text...]",
	Short: "Answer a prompt",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPromptsAnswer,
}

var promptsDeferCmd = &cobra.Command{
	Use:   "defer <id>",
	Short: "Set a prompt aside without answering",
	Args:  cobra.ExactArgs(1),
	RunE:  runPromptsDefer,
}

func init() {
	promptsCmd.AddCommand(promptsAnswerCmd)
	promptsCmd.AddCommand(promptsDeferCmd)
}

func runPromptsList(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	pending, err := db.PendingPrompts()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Println("no pending prompts")
		return nil
	}
	for _, p := range pending {
		fmt.Printf("%s  %-20s %s\n", styleH2.Render(p.ID), p.Kind, p.Day)
	}
	fmt.Println(styleMuted.Render("answer with: integra prompts answer <id> <text>"))
	return nil
}

func runPromptsAnswer(cmd *cobra.Command, args []string) error {
	body := map[string]any{}
	if len(args) > 1 {
		body["answer"] = strings.Join(args[1:], " ")
	}

	c := client.NewClient()
	if !c.Healthy() {
		return fmt.Errorf("daemon not reachable; start it with `integra serve`")
	}

	payload, _ := json.Marshal(body)
	if _, err := c.Post("/api/prompts/"+args[0]+"/answer", payload); err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", args[0], styleGood.Render("answered"))
	return nil
}

func runPromptsDefer(cmd *cobra.Command, args []string) error {
	c := client.NewClient()
	if !c.Healthy() {
		return fmt.Errorf("daemon not reachable; start it with `integra serve`")
	}
	if _, err := c.Post("/api/prompts/"+args[0]+"/defer", []byte(`{}`)); err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", args[0], styleMuted.Render("deferred"))
	return nil
}
