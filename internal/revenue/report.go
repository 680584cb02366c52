// Package revenue computes the owner's revenue report from picked-up
// orders.
package revenue

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/esora/officine/internal/pharmaapi"
	"github.com/esora/officine/internal/workflow"
)

const (
	recentLimit = 10
	dailyDays   = 7
)

var hundred = decimal.NewFromInt(100)

// Period is the revenue of one calendar window ending now.
type Period struct {
	Label   string          `json:"label"`
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int             `json:"orders"`
	Average decimal.Decimal `json:"average"`
}

// Day is the revenue of one calendar day of the chart. Share scales the
// day against the best day of the series, from 0 to 100.
type Day struct {
	Date    time.Time       `json:"date"`
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int             `json:"orders"`
	Share   int64           `json:"share"`
}

// Report is the revenue page content.
type Report struct {
	Periods []Period `json:"periods"`
	// Growth is the month-to-date change against the whole previous
	// month, in percent. HasGrowth is false when the previous month had no
	// revenue.
	Growth    decimal.Decimal   `json:"growth"`
	HasGrowth bool              `json:"has_growth"`
	Recent    []pharmaapi.Order `json:"recent"`
	// Daily covers the last seven days, oldest first, today included.
	Daily []Day `json:"daily"`
}

// Compute builds the report at now. Only picked-up orders count, dated by
// their pick-up time. Windows start at midnight, Sunday, the first of the
// month and the first of January in loc.
func Compute(orders []pharmaapi.Order, now time.Time, loc *time.Location) Report {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	week := day.AddDate(0, 0, -int(day.Weekday()))
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	year := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc)
	prevMonth := month.AddDate(0, -1, 0)

	periods := []Period{
		{Label: "Aujourd'hui"},
		{Label: "Cette semaine"},
		{Label: "Ce mois"},
		{Label: "Cette année"},
	}
	starts := []time.Time{day, week, month, year}
	previous := decimal.Zero
	daily := make([]Day, dailyDays)
	for i := range daily {
		daily[i].Date = day.AddDate(0, 0, i-dailyDays+1)
	}

	var picked []pharmaapi.Order
	for _, o := range orders {
		if o.Status != workflow.StatusPickedUp {
			continue
		}
		picked = append(picked, o)
		at := o.CompletedAt().In(loc)
		if at.After(now) {
			continue
		}
		if !at.Before(prevMonth) && at.Before(month) {
			previous = previous.Add(o.Total)
		}
		for i, start := range starts {
			if !at.Before(start) {
				periods[i].Revenue = periods[i].Revenue.Add(o.Total)
				periods[i].Orders++
			}
		}
		for i := len(daily) - 1; i >= 0; i-- {
			if !at.Before(daily[i].Date) {
				daily[i].Revenue = daily[i].Revenue.Add(o.Total)
				daily[i].Orders++
				break
			}
		}
	}
	scaleDays(daily)
	for i := range periods {
		periods[i].Average = Average(periods[i].Revenue, periods[i].Orders)
	}

	rep := Report{Periods: periods, Daily: daily}
	if previous.IsPositive() {
		rep.Growth = periods[2].Revenue.Sub(previous).Div(previous).Mul(hundred).Round(1)
		rep.HasGrowth = true
	}

	sort.SliceStable(picked, func(i, j int) bool { return picked[i].CompletedAt().After(picked[j].CompletedAt()) })
	if len(picked) > recentLimit {
		picked = picked[:recentLimit]
	}
	rep.Recent = picked
	return rep
}

// Average is the mean basket rounded to the franc. Zero orders give zero.
func Average(total decimal.Decimal, orders int) decimal.Decimal {
	if orders <= 0 {
		return decimal.Zero
	}
	return total.DivRound(decimal.NewFromInt(int64(orders)), 0)
}

func scaleDays(days []Day) {
	best := decimal.Zero
	for _, d := range days {
		if d.Revenue.GreaterThan(best) {
			best = d.Revenue
		}
	}
	if !best.IsPositive() {
		return
	}
	for i := range days {
		days[i].Share = days[i].Revenue.Mul(hundred).DivRound(best, 0).IntPart()
	}
}
