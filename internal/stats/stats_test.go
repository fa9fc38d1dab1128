package stats_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/RisAbd/sayfasayicibot/internal/database"
	"github.com/RisAbd/sayfasayicibot/internal/stats"
)

// fakeSource replays canned sums keyed by the since instant.
type fakeSource struct {
	sums       map[time.Time]int64
	checkpoint *database.Checkpoint
	calls      []time.Time
}

func (f *fakeSource) SumEntriesSince(_ context.Context, _ int64, since time.Time) (int64, error) {
	f.calls = append(f.calls, since)
	return f.sums[since], nil
}

func (f *fakeSource) LatestCheckpoint(_ context.Context, _ int64) (*database.Checkpoint, error) {
	return f.checkpoint, nil
}

func TestSummarizeWindows(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{
		sums: map[time.Time]int64{
			now.Add(-stats.DayWindow):   5,
			now.Add(-stats.WeekWindow):  35,
			now.Add(-stats.MonthWindow): 150,
		},
	}

	summary, err := stats.NewEngine(source, nil).Summarize(context.Background(), 1, now)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if summary.Day != 5 || summary.Week != 35 || summary.Month != 150 {
		t.Errorf("unexpected window sums: %+v", summary)
	}
	if summary.Checkpoint != nil {
		t.Errorf("expected no checkpoint delta, got %+v", summary.Checkpoint)
	}
	if len(source.calls) != 3 {
		t.Errorf("expected 3 window queries without a checkpoint, got %d", len(source.calls))
	}
}

func TestSummarizeWithCheckpoint(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	checkpointAt := now.Add(-72 * time.Hour)
	source := &fakeSource{
		sums: map[time.Time]int64{
			now.Add(-stats.DayWindow):   0,
			now.Add(-stats.WeekWindow):  12,
			now.Add(-stats.MonthWindow): 12,
			checkpointAt:                9,
		},
		checkpoint: &database.Checkpoint{ID: 3, Name: "hatim start", CreatedAt: checkpointAt, UserID: 1},
	}

	summary, err := stats.NewEngine(source, nil).Summarize(context.Background(), 1, now)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if summary.Checkpoint == nil {
		t.Fatal("expected a checkpoint delta")
	}
	if summary.Checkpoint.Name != "hatim start" || summary.Checkpoint.Pages != 9 {
		t.Errorf("unexpected checkpoint delta: %+v", summary.Checkpoint)
	}
	if !summary.Checkpoint.CreatedAt.Equal(checkpointAt) {
		t.Errorf("expected checkpoint instant %v, got %v", checkpointAt, summary.Checkpoint.CreatedAt)
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		summary  stats.Summary
		expected string
	}{
		{
			name:    "without checkpoint",
			summary: stats.Summary{Day: 1, Week: 2, Month: 3},
			expected: "you have read\n" +
				" - `1` sayfa for last day\n" +
				" - `2` sayfa for last week\n" +
				" - `3` sayfa for last month\n",
		},
		{
			name: "with checkpoint",
			summary: stats.Summary{
				Day:   0,
				Week:  14,
				Month: 60,
				Checkpoint: &stats.CheckpointDelta{
					Name:      "no name",
					CreatedAt: time.Date(2026, 8, 3, 9, 30, 0, 0, time.UTC),
					Pages:     21,
				},
			},
			expected: "you have read\n" +
				" - `0` sayfa for last day\n" +
				" - `14` sayfa for last week\n" +
				" - `60` sayfa for last month\n" +
				" - `21` sayfa since checkpoint `no name` (03/08/2026 09:30)\n",
		},
		{
			name:    "all zero",
			summary: stats.Summary{},
			expected: "you have read\n" +
				" - `0` sayfa for last day\n" +
				" - `0` sayfa for last week\n" +
				" - `0` sayfa for last month\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.summary.Render()
			if got != tc.expected {
				t.Errorf("unexpected rendering:\n got: %q\nwant: %q", got, tc.expected)
			}
		})
	}

	// The day figure always renders in backticks for markdown.
	if !strings.Contains((&stats.Summary{Day: 42}).Render(), "`42` sayfa for last day") {
		t.Error("expected backticked day figure")
	}
}
