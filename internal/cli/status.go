package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bprzybysz/integra/internal/config"
	"github.com/bprzybysz/integra/internal/notify"
)

var statusCmd = &cobra.Command{
	Use:   "status [date]",
	Short: "Show the day's standing",
	Long:  "Shows every behavior's quota position, every habit's streak, the day's advisor state, and anything waiting on you.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, eng, err := buildEngine(cfg, notify.NewConsole())
	if err != nil {
		return err
	}
	defer db.Close()

	day := ""
	if len(args) > 0 {
		day = args[0]
	}
	rep, err := eng.Status(day)
	if err != nil {
		return err
	}

	fmt.Println(styleTitle.Render("integra status " + rep.Day))
	if rep.Snapshot != nil {
		fmt.Printf("advisor: %s (%d misses, %d violations)\n",
			renderState(rep.Snapshot.State), rep.Snapshot.Misses, rep.Snapshot.Violations)
	} else {
		fmt.Println(styleMuted.Render("advisor: day not closed yet"))
	}

	if len(rep.Behaviors) > 0 {
		fmt.Println()
		fmt.Println(styleH2.Render("behaviors"))
		for _, b := range rep.Behaviors {
			line := fmt.Sprintf("  %-12s week %-3d %s/%s %s",
				b.ID, b.WeekIndex, ftoa(b.WeekTotal), ftoa(b.Ceiling), b.Unit)
			if b.Class != "" {
				line += "  " + renderClass(b.Class)
			}
			if b.Tier == config.TierAddictionTherapy && b.CleanDays > 0 {
				line += "  " + styleGood.Render(fmt.Sprintf("%d clean days", b.CleanDays))
			}
			fmt.Println(line)
		}
	}

	if len(rep.Habits) > 0 {
		fmt.Println()
		fmt.Println(styleH2.Render("habits"))
		for _, h := range rep.Habits {
			mark := styleMuted.Render("not yet")
			if h.CompletedToday {
				mark = styleGood.Render("done")
			} else if h.AtRisk {
				mark = styleWarn.Render(fmt.Sprintf("at risk (%d-day streak)", h.Streak))
			}
			fmt.Printf("  %-12s streak %-3d x%.2f  grace %d  %s\n",
				h.ID, h.Streak, h.Multiplier, h.GraceAvailable, mark)
		}
	}

	if len(rep.Approvals) > 0 {
		fmt.Println()
		fmt.Println(styleH2.Render("pending approvals"))
		for _, a := range rep.Approvals {
			fmt.Printf("  %s  %s\n", a.ID, styleMuted.Render(
				fmt.Sprintf("requested %s, expires %s",
					humanize.Time(time.UnixMilli(a.RequestedAt)),
					humanize.Time(time.UnixMilli(a.ExpiresAt)))))
			fmt.Printf("    %s\n", a.Prompt)
			var options []string
			json.Unmarshal([]byte(a.Options), &options)
			for i, opt := range options {
				fmt.Printf("    %d. %s\n", i+1, opt)
			}
		}
	}

	if len(rep.Prompts) > 0 {
		fmt.Println()
		fmt.Println(styleH2.Render("pending prompts"))
		for _, p := range rep.Prompts {
			fmt.Printf("  %s  %s (%s)\n", p.ID, p.Kind, p.Day)
		}
	}
	return nil
}
