package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bprzybysz/integra/internal/client"
)

var approvalsCmd = &cobra.Command{
	Use:   "approvals",
	Short: "List pending approvals",
	Args:  cobra.NoArgs,
	RunE:  runApprovalsList,
}

var (
	approvalDeny   bool
	approvalOption int
)

var approvalsResolveCmd = &cobra.Command{
	Use:   "resolve <id>",
	Short: "Approve or deny a pending approval",
	Long: "Approving a penance opens its repair and diary tasks under the chosen\n" +
		"option. Denying closes it declined. Resolved approvals reject late answers.",
	Args: cobra.ExactArgs(1),
	RunE: runApprovalsResolve,
}

func init() {
	approvalsResolveCmd.Flags().BoolVar(&approvalDeny, "deny", false, "deny instead of approve")
	approvalsResolveCmd.Flags().IntVar(&approvalOption, "option", 1, "1-based option to approve")
	approvalsCmd.AddCommand(approvalsResolveCmd)
}

func runApprovalsList(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	pending, err := db.PendingApprovals()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Println("no pending approvals")
		return nil
	}

	for _, a := range pending {
		fmt.Printf("%s  %s  %s\n", styleH2.Render(a.ID), a.Kind, styleMuted.Render(
			fmt.Sprintf("requested %s, expires %s",
				humanize.Time(time.UnixMilli(a.RequestedAt)),
				humanize.Time(time.UnixMilli(a.ExpiresAt)))))
		fmt.Printf("  %s\n", a.Prompt)
		var options []string
		json.Unmarshal([]byte(a.Options), &options)
		for i, opt := range options {
			fmt.Printf("  %d. %s\n", i+1, opt)
		}
		fmt.Println()
	}
	fmt.Println(styleMuted.Render("resolve with: integra approvals resolve <id> [--deny] [--option N]"))
	return nil
}

func runApprovalsResolve(cmd *cobra.Command, args []string) error {
	decision := "approve"
	if approvalDeny {
		decision = "deny"
	}
	body := map[string]any{"decision": decision}
	if !approvalDeny {
		if approvalOption < 1 {
			return fmt.Errorf("--option is 1-based, got %d", approvalOption)
		}
		body["option"] = approvalOption - 1
	}

	c := client.NewClient()
	if !c.Healthy() {
		return fmt.Errorf("daemon not reachable; start it with `integra serve`")
	}

	payload, _ := json.Marshal(body)
	data, err := c.Post("/api/approvals/"+args[0], payload)
	if err != nil {
		return err
	}

	var res struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	mark := styleGood.Render(res.Status)
	if approvalDeny {
		mark = styleMuted.Render(res.Status)
	}
	fmt.Printf("%s: %s\n", res.ID, mark)
	return nil
}
