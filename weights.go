package painpoint

import (
	"math"
	"strings"
)

// elevatedPriorities are the tokens treated as high-priority feedback.
// Membership is case-insensitive.
var elevatedPriorities = map[string]struct{}{
	"high":     {},
	"urgent":   {},
	"critical": {},
	"blocker":  {},
	"p0":       {},
	"p1":       {},
}

const (
	priorityWeightHigh = 5.0
	priorityWeightBase = 1.0
)

// ComputeWeights derives a strictly positive per-record weight from the
// priority flag, account revenue, and account size. Revenue and size scale the
// base weight through 1+log1p(x): zero maps to a neutral multiplier of 1 and
// the growth is sub-linear, so very large accounts cannot dominate arbitrarily.
// When every weight comes out numerically identical the run carries no signal,
// so nil is returned and clustering proceeds unweighted.
func ComputeWeights(records []FeedbackRecord) []float64 {
	if len(records) == 0 {
		return nil
	}

	weights := make([]float64, len(records))
	for i, rec := range records {
		base := priorityWeightBase
		token := strings.ToLower(strings.TrimSpace(rec.Priority))
		if _, ok := elevatedPriorities[token]; ok {
			base = priorityWeightHigh
		}
		revenue := math.Max(rec.Revenue, 0)
		size := math.Max(rec.Size, 0)
		weights[i] = base * (1 + math.Log1p(revenue)) * (1 + math.Log1p(size))
	}

	uniform := true
	for _, w := range weights[1:] {
		if w != weights[0] {
			uniform = false
			break
		}
	}
	if uniform {
		return nil
	}
	return weights
}
