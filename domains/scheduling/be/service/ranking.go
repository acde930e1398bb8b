package service

import (
	"sort"
	"time"

	workersvc "github.com/upkeephq/upkeep/domains/workers/be/service"
)

// WorkerAvailability is one ranked candidate with the annotations a UI needs
// to present a pick list.
type WorkerAvailability struct {
	Email                string
	Name                 string
	Specialization       workersvc.Specialization
	BookedDates          []time.Time
	PartiallyBookedDates []time.Time
	NextAvailableDate    *time.Time
	RankingScore         int
}

// RankWorkers filters workers down to active candidates whose trade covers the
// required specialization and orders them soonest-available first, ties broken
// by lighter load then email for a stable presentation order.
func RankWorkers(workers []workersvc.Worker, required workersvc.Specialization, from time.Time, horizonDays int, isEmergency bool) []WorkerAvailability {
	end := from.AddDate(0, 0, horizonDays)

	candidates := make([]WorkerAvailability, 0, len(workers))
	for i := range workers {
		w := &workers[i]
		if !w.Active || !w.CanHandle(required) {
			continue
		}
		candidates = append(candidates, WorkerAvailability{
			Email:                w.Email,
			Name:                 w.Name,
			Specialization:       w.Specialization,
			BookedDates:          w.BookedDatesInRange(from, end, isEmergency),
			PartiallyBookedDates: w.PartiallyBookedDatesInRange(from, end),
			NextAvailableDate:    w.NextFullyAvailableDate(from, horizonDays),
			RankingScore:         w.RankingScore(from, horizonDays),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].RankingScore != candidates[j].RankingScore {
			return candidates[i].RankingScore < candidates[j].RankingScore
		}
		return candidates[i].Email < candidates[j].Email
	})

	return candidates
}
