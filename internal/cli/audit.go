package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bprzybysz/integra/internal/store"
)

var auditLimit int

var auditCmd = &cobra.Command{
	Use:   "audit [day]",
	Short: "Show the decision trail",
	Long: "Prints the append-only audit log: every score, state change, and\n" +
		"dispatched side effect. With a day argument, that day's trail in write\n" +
		"order; otherwise the most recent entries.",
	Args: cobra.MaximumNArgs(1),
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().IntVar(&auditLimit, "limit", 50, "entries to show without a day argument")
}

func runAudit(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	var entries []store.AuditEntry
	if len(args) > 0 {
		entries, err = db.AuditForDay(args[0])
	} else {
		entries, err = db.RecentAudit(auditLimit)
	}
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no audit entries")
		return nil
	}

	for _, e := range entries {
		at := time.UnixMilli(e.At)
		when := humanize.Time(at)
		if len(args) > 0 {
			when = at.Local().Format("15:04:05")
		}
		fmt.Printf("%s  %s  %-10s %-28s %s\n",
			styleMuted.Render(e.Day), styleMuted.Render(when), e.Kind, e.Subject, e.Detail)
	}
	return nil
}
