package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bprzybysz/integra/internal/client"
	"github.com/bprzybysz/integra/internal/config"
	"github.com/bprzybysz/integra/internal/engine"
	"github.com/bprzybysz/integra/internal/history"
	"github.com/bprzybysz/integra/internal/notify"
)

var importCmd = &cobra.Command{
	Use:   "import <file.jsonl>",
	Short: "Bulk-import exported tracking history",
	Long: "Parses a JSONL export, records every usage and habit line, then replays\n" +
		"the advisor over the imported range. Run it with the daemon stopped;\n" +
		"import writes to the database directly.",
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	if client.NewClient().Healthy() {
		return fmt.Errorf("daemon is running; stop it before importing")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Replay narration is collected rather than delivered; a summary prints
	// at the end. Penance approvals queued during replay re-offer at the
	// daemon's next check-in.
	sink := &notify.Mock{}
	db, eng, err := buildEngine(cfg, sink)
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := history.ParseFile(args[0], eng.Clock.Location())
	if err != nil {
		return err
	}
	if len(res.Records) == 0 {
		fmt.Printf("nothing to import (%d line(s) skipped)\n", res.Skipped)
		return nil
	}
	fmt.Printf("parsed %d record(s), %d skipped, %s..%s\n",
		len(res.Records), res.Skipped, res.FirstDay, res.LastDay)

	var usages, habits, failed int
	for _, rec := range res.Records {
		switch rec.Kind {
		case "usage":
			_, err := eng.SubmitUsage(engine.UsageRequest{
				Behavior: rec.Behavior,
				At:       rec.At,
				Amount:   rec.Amount,
				Add:      true,
				Unit:     rec.Unit,
				Hungry:   rec.Hungry,
				Angry:    rec.Angry,
				Lonely:   rec.Lonely,
				Tired:    rec.Tired,
				Craving:  rec.Craving,
				Note:     rec.Note,
			})
			if err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "  skip %s %s: %v\n", rec.Day, rec.Behavior, err)
				continue
			}
			usages++
		case "habit":
			_, err := eng.SubmitHabit(engine.HabitRequest{
				Habit:       rec.Habit,
				Day:         rec.Day,
				Completed:   rec.Completed,
				DurationMin: rec.DurationMin,
			})
			if err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "  skip %s %s: %v\n", rec.Day, rec.Habit, err)
				continue
			}
			habits++
		}
	}

	closed, err := eng.Replay(context.Background(), res.FirstDay, res.LastDay, false)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	fmt.Printf("imported %d usage + %d habit record(s)", usages, habits)
	if failed > 0 {
		fmt.Printf(" (%d unrecognized)", failed)
	}
	fmt.Printf("; advisor closed %d day(s)\n", closed)
	if len(sink.Approvals) > 0 {
		fmt.Printf("%s\n", styleWarn.Render(fmt.Sprintf(
			"%d penance approval(s) queued; they re-offer at the next check-in", len(sink.Approvals))))
	}
	return nil
}
