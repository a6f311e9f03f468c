package core

import "sort"

// DailyBalance is one point of the balance timeline: the realized
// balance as of end-of-day plus the records dated that day. It is
// computed on demand and never persisted.
type DailyBalance struct {
	Date    Date     `json:"date"`
	Balance Money    `json:"balance"`
	Records []Record `json:"transactions"`
}

// ProjectDailyBalances folds records into a sparse day-by-day running
// balance starting from startingBalance (cents). Records are grouped by
// date, distinct dates are walked in ascending order and each day's net
// delta counts received income positively, expenses negatively and
// unreceived income not at all: expected money must not inflate the
// realized balance.
//
// The result depends only on the date grouping, not on the order of the
// input slice, and days without records are not emitted.
func ProjectDailyBalances(records []Record, startingBalance int64) []DailyBalance {
	byDate := make(map[string][]Record)
	for _, r := range records {
		key := r.Date.String()
		byDate[key] = append(byDate[key], r)
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	balances := make([]DailyBalance, 0, len(dates))
	running := startingBalance
	for _, d := range dates {
		day := byDate[d]
		for i := range day {
			running += day[i].RealizedDelta()
		}
		balances = append(balances, DailyBalance{
			Date:    day[0].Date,
			Balance: Money{Cents: running},
			Records: day,
		})
	}
	return balances
}
