package pdf

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMonthlyUsage(t *testing.T) {
	month := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	report := UsageReport{
		OwnerName:      "Ayu Lestari",
		OwnerEmail:     "ayu@example.com",
		Month:          month,
		DailyThreshold: 200,
		Days: []ReportDay{
			{Day: month, Liters: 120, Band: "good"},
			{Day: month.AddDate(0, 0, 1), Liters: 180, Band: "warning"},
			{Day: month.AddDate(0, 0, 2), Liters: 240.5, Band: "exceeded"},
		},
		Total:       540.5,
		Average:     180.17,
		DaysOver:    1,
		Tips:        []string{"Fix leaky faucets promptly."},
		GeneratedAt: month.AddDate(0, 0, 14),
	}

	out, err := New().RenderMonthlyUsage(context.Background(), report)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderMonthlyUsageEmptyMonth(t *testing.T) {
	out, err := New().RenderMonthlyUsage(context.Background(), UsageReport{
		OwnerName: "Ayu",
		Month:     time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestRenderMonthlyUsageCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().RenderMonthlyUsage(ctx, UsageReport{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFilename(t *testing.T) {
	month := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "aquaalerts-ayu-lestari-2026-10.pdf", Filename("Ayu Lestari", month))
	assert.Equal(t, "aquaalerts-report-2026-10.pdf", Filename("  ", month))
}

func TestLatin1StripsEmoji(t *testing.T) {
	assert.Equal(t, "Great job! Your water usage is well managed.", latin1("✅ Great job! Your water usage is well managed."))
	assert.Equal(t, "José", latin1("José"))
}
