package ledger

import (
	"errors"
	"reflect"
	"testing"

	"github.com/bprzybysz/integra/internal/store"
)

func TestFacetsFormat(t *testing.T) {
	f := Facets{Origin: OriginPlanned, Nature: NatureReward, Category: "healthy"}
	got := f.Format()
	want := []string{"origin:planned", "nature:reward", "category:healthy"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Format() = %v, want %v", got, want)
	}
}

func TestFacetsFormatSkipsEmpty(t *testing.T) {
	f := Facets{Origin: OriginChoice}
	got := f.Format()
	want := []string{"origin:choice"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Format() = %v, want %v", got, want)
	}
}

func TestParseRoundTrip(t *testing.T) {
	f := Facets{Origin: OriginPlanned, Nature: NatureJob, Category: "chores", Score: 3}
	labels := append(f.Format(), ScoreLabel(3))

	got, err := Parse(labels)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got != f {
		t.Errorf("Parse() = %+v, want %+v", got, f)
	}
}

func TestParseScoreZero(t *testing.T) {
	got, err := Parse([]string{"origin:planned", "score:0"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.Score != 0 {
		t.Errorf("Score = %d, want 0", got.Score)
	}
}

func TestParseIgnoresUnknownLabels(t *testing.T) {
	got, err := Parse([]string{"priority:p1", "someday", "nature:reward", "score:2"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.Nature != NatureReward || got.Score != 2 {
		t.Errorf("Parse() = %+v, want nature reward, score 2", got)
	}
}

func TestParseMissingScore(t *testing.T) {
	_, err := Parse([]string{"origin:planned", "nature:job"})
	if !errors.Is(err, ErrNoScore) {
		t.Errorf("err = %v, want ErrNoScore", err)
	}
}

func TestParseMalformedScore(t *testing.T) {
	for _, labels := range [][]string{
		{"score:abc"},
		{"score:-1"},
		{"score:"},
	} {
		if _, err := Parse(labels); err == nil || errors.Is(err, ErrNoScore) {
			t.Errorf("Parse(%v): expected malformed-score error, got %v", labels, err)
		}
	}
}

func TestLocalLedgerRoundTrip(t *testing.T) {
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()
	led := NewLocal(db)

	task := &Task{Title: "morning run", Labels: Facets{Origin: OriginPlanned, Nature: NatureReward, Category: "healthy"}.Format()}
	if err := led.CreateTask(task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.ID == "" {
		t.Fatal("CreateTask should assign an id")
	}

	open, err := led.OpenTasks()
	if err != nil {
		t.Fatalf("OpenTasks: %v", err)
	}
	if len(open) != 1 || open[0].ID != task.ID {
		t.Fatalf("open = %+v, want the created task", open)
	}
	if open[0].Closed() {
		t.Error("task should be open")
	}

	final := append(Facets{Origin: OriginPlanned, Nature: NatureReward, Category: "healthy"}.Format(), ScoreLabel(2))
	if err := led.CloseTask(task.ID, "2026-01-05", final); err != nil {
		t.Fatalf("CloseTask: %v", err)
	}

	got, err := led.Task(task.ID)
	if err != nil {
		t.Fatalf("Task: %v", err)
	}
	if !got.Closed() || got.ClosedDay != "2026-01-05" {
		t.Errorf("ClosedDay = %q, want 2026-01-05", got.ClosedDay)
	}
	f, err := Parse(got.Labels)
	if err != nil {
		t.Fatalf("Parse closed labels: %v", err)
	}
	if f.Score != 2 {
		t.Errorf("Score = %d, want 2", f.Score)
	}

	closed, err := led.ClosedTasksBetween("2026-01-01", "2026-01-07")
	if err != nil {
		t.Fatalf("ClosedTasksBetween: %v", err)
	}
	if len(closed) != 1 {
		t.Errorf("got %d closed tasks, want 1", len(closed))
	}
}

func TestLocalLedgerMissingTask(t *testing.T) {
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()
	led := NewLocal(db)

	got, err := led.Task("nonexistent")
	if err != nil {
		t.Fatalf("Task: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing task, got %+v", got)
	}
}
