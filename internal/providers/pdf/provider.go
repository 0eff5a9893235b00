package pdf

import (
	"context"
	"fmt"
	"time"

	"github.com/gosimple/slug"
)

type Provider interface {
	RenderMonthlyUsage(ctx context.Context, report UsageReport) ([]byte, error)
}

// UsageReport is one owner's month of usage, already aggregated.
type UsageReport struct {
	OwnerName      string
	OwnerEmail     string
	Month          time.Time
	DailyThreshold float64
	Days           []ReportDay
	Total          float64
	Average        float64
	DaysOver       int
	Tips           []string
	GeneratedAt    time.Time
}

type ReportDay struct {
	Day    time.Time
	Liters float64
	Band   string
}

// Filename builds the attachment name, e.g. aquaalerts-ayu-lestari-2026-10.pdf.
func Filename(ownerName string, month time.Time) string {
	name := slug.Make(ownerName)
	if name == "" {
		name = "report"
	}
	return fmt.Sprintf("aquaalerts-%s-%s.pdf", name, month.Format("2006-01"))
}
