package pdf

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

var bandColors = map[string]*props.Color{
	"good":     {Red: 22, Green: 163, Blue: 74},
	"warning":  {Red: 217, Green: 119, Blue: 6},
	"exceeded": {Red: 220, Green: 38, Blue: 38},
}

type MarotoProvider struct{}

func New() Provider {
	return &MarotoProvider{}
}

func (p *MarotoProvider) RenderMonthlyUsage(ctx context.Context, report UsageReport) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(8, "AquaAlerts monthly usage", props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, report.Month.Format("January 2006"), props.Text{
			Size:  12,
			Align: align.Right,
			Top:   3,
		}),
	)

	m.AddRow(18,
		col.New(6).Add(
			text.New(latin1(report.OwnerName), props.Text{Style: fontstyle.Bold}),
			text.New(report.OwnerEmail, props.Text{Top: 5, Size: 9}),
		),
		col.New(6).Add(
			text.New("Daily threshold: "+liters(report.DailyThreshold), props.Text{Align: align.Right}),
			text.New("Generated: "+report.GeneratedAt.Format("2006-01-02 15:04 MST"), props.Text{Top: 5, Size: 8, Align: align.Right}),
		),
	)

	m.AddRow(8,
		text.NewCol(4, "Day", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "Usage", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(4, "Status", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	if len(report.Days) == 0 {
		m.AddRow(8, text.NewCol(12, "No usage recorded this month.", props.Text{Size: 9}))
	}
	for _, day := range report.Days {
		m.AddRow(6,
			text.NewCol(4, day.Day.Format("Mon 02 Jan"), props.Text{Size: 9}),
			text.NewCol(4, liters(day.Liters), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(4, day.Band, props.Text{Size: 9, Align: align.Right, Color: bandColors[day.Band]}),
		)
	}

	m.AddRow(6, col.New(12))
	m.AddRow(6,
		col.New(6),
		text.NewCol(3, "Total", props.Text{Size: 9}),
		text.NewCol(3, liters(report.Total), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(6,
		col.New(6),
		text.NewCol(3, "Daily average", props.Text{Size: 9}),
		text.NewCol(3, liters(report.Average), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(6,
		col.New(6),
		text.NewCol(3, "Days over threshold", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, strconv.Itoa(report.DaysOver), props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	if len(report.Tips) > 0 {
		m.AddRow(12, text.NewCol(12, "Tips", props.Text{Style: fontstyle.Bold, Size: 12, Top: 4}))
		for _, tip := range report.Tips {
			m.AddRow(7, text.NewCol(12, latin1(tip), props.Text{Size: 9}))
		}
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("render usage report: %w", err)
	}
	return doc.GetBytes(), nil
}

func liters(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + " L"
}

// latin1 drops runes the core PDF fonts cannot draw, such as emoji.
func latin1(s string) string {
	out := strings.Map(func(r rune) rune {
		if r > unicode.MaxLatin1 {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(out)
}
