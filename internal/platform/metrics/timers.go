package metrics

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

var durations chan Duration

// for aggregating durations
var agg = struct {
	taken map[string][]float64
	m     sync.Mutex
}{
	taken: make(map[string][]float64),
}

// Duration is the time taken by a cycle stage.
type Duration struct {
	id    string
	taken time.Duration
}

type DurationStats struct {
	ID           string
	Count        int
	Average      time.Duration
	Percentile50 time.Duration
	Percentile95 time.Duration
}

func init() {
	durations = make(chan Duration, 300)

	go func() {
		for d := range durations {
			agg.m.Lock()
			agg.taken[d.id] = append(agg.taken[d.id], float64(d.taken))
			agg.m.Unlock()
		}
	}()
}

// Track records taken with identity id.  Cycle durations come from the
// processing clock so they are passed in rather than timed here.
func Track(id string, taken time.Duration) error {
	select {
	case durations <- Duration{id: id, taken: taken}:
	default:
		return fmt.Errorf("failed to track %s took %s", id, taken)
	}

	return nil
}

// ReadDurations returns the stats for each id since the last call.
func ReadDurations() []DurationStats {
	var s []DurationStats

	agg.m.Lock()
	for k, v := range agg.taken {
		sort.Float64s(v)

		s = append(s, DurationStats{
			ID:           k,
			Count:        len(v),
			Average:      time.Duration(stat.Mean(v, nil)),
			Percentile50: time.Duration(stat.Quantile(0.5, stat.Empirical, v, nil)),
			Percentile95: time.Duration(stat.Quantile(0.95, stat.Empirical, v, nil)),
		})

		delete(agg.taken, k)
	}
	agg.m.Unlock()

	sort.Slice(s, func(i, j int) bool { return s[i].ID < s[j].ID })

	return s
}
