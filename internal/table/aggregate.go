package table

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"sdmx-explorer/internal/domain"
	"sdmx-explorer/internal/sdmx"
)

// Point is one aggregated bucket.
type Point struct {
	X     string
	Group string
	Y     float64 // mean of the bucket's numeric values; NaN when it has none
	Count int     // numeric values that went into Y
}

// Aggregated is the result of grouping a table by X (and optionally Group).
type Aggregated struct {
	Dataflow string
	X        string
	Y        string
	Group    string
	Points   []Point
}

// Len returns the number of buckets.
func (a *Aggregated) Len() int { return len(a.Points) }

// Groups returns the distinct group values in point order. Without a group
// column it returns a single empty group.
func (a *Aggregated) Groups() []string {
	if a.Group == "" {
		return []string{""}
	}
	seen := make(map[string]bool)
	var out []string
	for _, p := range a.Points {
		if !seen[p.Group] {
			seen[p.Group] = true
			out = append(out, p.Group)
		}
	}
	return out
}

type bucketKey struct{ x, group string }

type bucket struct {
	sum   float64
	count int
}

// Aggregate groups t by x (and group when non-empty) and averages y per bucket.
// Rows with an empty key are dropped and missing y values are skipped. Buckets are
// sorted by key, numerically when both keys are numbers.
func Aggregate(t *domain.ObservationTable, x, y, group string) (*Aggregated, error) {
	cols := []string{x, y}
	if group != "" {
		cols = append(cols, group)
	}
	if err := RequireColumns(t, cols...); err != nil {
		return nil, err
	}

	xIdx := t.ColumnIndex(x)
	yIdx := t.ColumnIndex(y)
	gIdx := -1
	if group != "" {
		gIdx = t.ColumnIndex(group)
	}
	useValues := y == domain.ColumnObsValue && t.Values != nil

	buckets := make(map[bucketKey]*bucket)
	order := make([]bucketKey, 0)
	for i := range t.Rows {
		key := bucketKey{x: t.Cell(i, xIdx)}
		if key.x == "" {
			continue
		}
		if gIdx >= 0 {
			key.group = t.Cell(i, gIdx)
			if key.group == "" {
				continue
			}
		}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
			order = append(order, key)
		}

		var v float64
		if useValues {
			v = t.Value(i)
		} else {
			v = sdmx.ParseNumber(t.Cell(i, yIdx))
		}
		if math.IsNaN(v) {
			continue
		}
		b.sum += v
		b.count++
	}

	sort.SliceStable(order, func(i, j int) bool {
		if c := compareKeys(order[i].x, order[j].x); c != 0 {
			return c < 0
		}
		return compareKeys(order[i].group, order[j].group) < 0
	})

	out := &Aggregated{Dataflow: t.Dataflow, X: x, Y: y, Group: group, Points: make([]Point, 0, len(order))}
	for _, k := range order {
		b := buckets[k]
		mean := math.NaN()
		if b.count > 0 {
			mean = b.sum / float64(b.count)
		}
		out.Points = append(out.Points, Point{X: k.x, Group: k.group, Y: mean, Count: b.count})
	}
	return out, nil
}

// compareKeys orders numbers numerically and everything else lexically.
func compareKeys(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	// Numeric keys sort before the rest so the order stays total.
	switch {
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(a, b)
}
