package cost

import (
	"errors"
	"sort"
	"time"
)

// Era is an annual financing rate in force from From until the next era begins.
type Era struct {
	From time.Time
	Rate float64
}

// Schedule is an ordered lookup table of rate eras.
type Schedule []Era

// DefaultExpenseRatio is the typical annual fee of a leveraged ETF.
const DefaultExpenseRatio = 0.0095

func year(y int) time.Time { return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC) }

// DefaultSchedule approximates short-term borrowing rates by interest-rate regime.
var DefaultSchedule = Schedule{
	{From: time.Time{}, Rate: 0.05},
	{From: year(1980), Rate: 0.08},
	{From: year(1990), Rate: 0.05},
	{From: year(2000), Rate: 0.03},
	{From: year(2008), Rate: 0.0025},
	{From: year(2016), Rate: 0.01},
	{From: year(2022), Rate: 0.045},
}

var errUnsortedSchedule = errors.New("schedule eras must be strictly increasing")

// NewSchedule sorts eras and rejects duplicate start dates.
func NewSchedule(eras []Era) (Schedule, error) {
	s := make(Schedule, len(eras))
	copy(s, eras)
	sort.Slice(s, func(i, j int) bool { return s[i].From.Before(s[j].From) })
	for i := 1; i < len(s); i++ {
		if !s[i].From.After(s[i-1].From) {
			return nil, errUnsortedSchedule
		}
	}
	return s, nil
}

// RateOn returns the rate of the era containing date. Dates before the first
// era use the first era's rate.
func (s Schedule) RateOn(date time.Time) float64 {
	if len(s) == 0 {
		return 0
	}
	i := sort.Search(len(s), func(i int) bool { return s[i].From.After(date) })
	if i == 0 {
		return s[0].Rate
	}
	return s[i-1].Rate
}
