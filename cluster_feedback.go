package painpoint

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// clusterSeed fixes the RNG for every clustering run: same matrix, k, and
// weights always produce the same labels.
const clusterSeed = 42

const (
	maxKMeansIterations = 100
	centroidTolerance   = 1e-4
)

// Cluster is one partition cell: its label, member record indices, and the
// fitted centroid. Member sets across clusters are pairwise disjoint and cover
// the whole corpus.
type Cluster struct {
	ID       int
	Members  []int
	Centroid []float64
}

// ClusterRecords hard-assigns every matrix row to one of k clusters with
// seeded weighted k-means. Weights scale a record's pull on centroid updates;
// membership stays a plain assignment. The matrix is sanitized before fitting,
// never rejected for non-finite entries.
func ClusterRecords(features *mat.Dense, k int, weights []float64) ([]int, *mat.Dense, error) {
	n, _ := features.Dims()
	if n == 0 {
		return nil, nil, fmt.Errorf("cannot cluster an empty matrix")
	}
	if weights != nil && len(weights) != n {
		return nil, nil, fmt.Errorf("weight vector length %d does not match %d records", len(weights), n)
	}
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}

	sanitizeMatrix(features)

	rng := rand.New(rand.NewSource(clusterSeed))
	centroids := initCentroidsKMeansPlusPlus(features, k, rng)

	assignments := make([]int, n)
	for iteration := 0; iteration < maxKMeansIterations; iteration++ {
		newAssignments := assignToNearestCentroid(features, centroids)

		converged := iteration > 0
		for i := range assignments {
			if assignments[i] != newAssignments[i] {
				converged = false
				break
			}
		}
		assignments = newAssignments
		if converged {
			break
		}

		newCentroids := updateWeightedCentroids(features, assignments, weights, k)
		reseedEmptyCentroids(features, assignments, newCentroids)

		change := centroidShift(centroids, newCentroids)
		centroids = newCentroids
		if change < centroidTolerance {
			break
		}
	}

	return assignments, centroids, nil
}

// initCentroidsKMeansPlusPlus seeds centroids with the k-means++ scheme:
// the first at random, the rest with probability proportional to squared
// distance from the nearest chosen centroid.
func initCentroidsKMeansPlusPlus(data *mat.Dense, k int, rng *rand.Rand) *mat.Dense {
	n, d := data.Dims()
	centroids := mat.NewDense(k, d, nil)

	centroids.SetRow(0, data.RawRowView(rng.Intn(n)))

	for i := 1; i < k; i++ {
		distances := make([]float64, n)
		totalWeight := 0.0
		for j := 0; j < n; j++ {
			point := data.RawRowView(j)
			minDist := math.Inf(1)
			for c := 0; c < i; c++ {
				if dist := squaredDistance(point, centroids.RawRowView(c)); dist < minDist {
					minDist = dist
				}
			}
			distances[j] = minDist
			totalWeight += minDist
		}

		if totalWeight == 0 {
			// All points coincide with a chosen centroid.
			centroids.SetRow(i, data.RawRowView(rng.Intn(n)))
			continue
		}

		target := rng.Float64() * totalWeight
		cumWeight := 0.0
		for j, dist := range distances {
			cumWeight += dist
			if cumWeight >= target {
				centroids.SetRow(i, data.RawRowView(j))
				break
			}
		}
	}

	return centroids
}

func assignToNearestCentroid(data, centroids *mat.Dense) []int {
	n, _ := data.Dims()
	k, _ := centroids.Dims()
	assignments := make([]int, n)

	for i := 0; i < n; i++ {
		point := data.RawRowView(i)
		minDist := math.Inf(1)
		best := 0
		for j := 0; j < k; j++ {
			if dist := squaredDistance(point, centroids.RawRowView(j)); dist < minDist {
				minDist = dist
				best = j
			}
		}
		assignments[i] = best
	}

	return assignments
}

// updateWeightedCentroids recomputes centroids as weighted means. With nil
// weights every record contributes equally.
func updateWeightedCentroids(data *mat.Dense, assignments []int, weights []float64, k int) *mat.Dense {
	n, d := data.Dims()
	centroids := mat.NewDense(k, d, nil)
	weightSums := make([]float64, k)

	for i := 0; i < n; i++ {
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		clusterID := assignments[i]
		point := data.RawRowView(i)
		for j := 0; j < d; j++ {
			centroids.Set(clusterID, j, centroids.At(clusterID, j)+w*point[j])
		}
		weightSums[clusterID] += w
	}

	for c := 0; c < k; c++ {
		if weightSums[c] > 0 {
			for j := 0; j < d; j++ {
				centroids.Set(c, j, centroids.At(c, j)/weightSums[c])
			}
		}
	}

	return centroids
}

// reseedEmptyCentroids moves each memberless centroid onto the record farthest
// from its current centroid, scanning in index order so the choice is
// deterministic.
func reseedEmptyCentroids(data *mat.Dense, assignments []int, centroids *mat.Dense) {
	k, _ := centroids.Dims()
	n, _ := data.Dims()

	counts := make([]int, k)
	for _, a := range assignments {
		counts[a]++
	}

	used := make(map[int]struct{})
	for c := 0; c < k; c++ {
		if counts[c] > 0 {
			continue
		}
		farthest, maxDist := -1, -1.0
		for i := 0; i < n; i++ {
			if _, taken := used[i]; taken {
				continue
			}
			dist := squaredDistance(data.RawRowView(i), centroids.RawRowView(assignments[i]))
			if dist > maxDist {
				farthest, maxDist = i, dist
			}
		}
		if farthest >= 0 {
			centroids.SetRow(c, data.RawRowView(farthest))
			used[farthest] = struct{}{}
		}
	}
}

func centroidShift(oldCentroids, newCentroids *mat.Dense) float64 {
	k, _ := oldCentroids.Dims()
	total := 0.0
	for i := 0; i < k; i++ {
		total += math.Sqrt(squaredDistance(oldCentroids.RawRowView(i), newCentroids.RawRowView(i)))
	}
	return total / float64(k)
}

func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

// BuildClusters groups record indices by label. Empty labels are dropped;
// the remaining member sets partition the corpus.
func BuildClusters(assignments []int, centroids *mat.Dense) []Cluster {
	k, _ := centroids.Dims()
	byLabel := make([][]int, k)
	for i, label := range assignments {
		byLabel[label] = append(byLabel[label], i)
	}

	var clusters []Cluster
	for label, members := range byLabel {
		if len(members) == 0 {
			continue
		}
		centroid := make([]float64, centroids.RawMatrix().Cols)
		copy(centroid, centroids.RawRowView(label))
		clusters = append(clusters, Cluster{ID: label, Members: members, Centroid: centroid})
	}
	return clusters
}

// centroidSilhouette scores a candidate partition: the mean over records of
// (b-a)/max(a,b), where a is the distance to the record's own centroid and b
// the distance to the nearest other cluster's centroid. Undefined (NaN) when
// fewer than two clusters have members.
func centroidSilhouette(features *mat.Dense, assignments []int, centroids *mat.Dense) float64 {
	n, _ := features.Dims()
	k, _ := centroids.Dims()

	populated := make([]bool, k)
	distinct := 0
	for _, a := range assignments {
		if !populated[a] {
			populated[a] = true
			distinct++
		}
	}
	if distinct < 2 {
		return math.NaN()
	}

	total := 0.0
	for i := 0; i < n; i++ {
		point := features.RawRowView(i)
		own := assignments[i]
		a := math.Sqrt(squaredDistance(point, centroids.RawRowView(own)))

		b := math.Inf(1)
		for c := 0; c < k; c++ {
			if c == own || !populated[c] {
				continue
			}
			if dist := math.Sqrt(squaredDistance(point, centroids.RawRowView(c))); dist < b {
				b = dist
			}
		}

		if denom := math.Max(a, b); denom > 0 {
			total += (b - a) / denom
		}
	}

	return total / float64(n)
}

// SelectClusterCount searches [kMin, min(kMax, n-1)] for the k with the best
// silhouette score, running unweighted seeded k-means per candidate.
// Candidates producing fewer than two clusters, any singleton cluster, or a
// non-finite score are skipped. Ties keep the lowest k; if no candidate
// scores, kMin is returned.
func SelectClusterCount(features *mat.Dense, kMin, kMax int) int {
	n, _ := features.Dims()
	if kMin < 1 {
		kMin = 1
	}
	kEff := kMax
	if kEff > n-1 {
		kEff = n - 1
	}

	bestK := kMin
	bestScore := math.Inf(-1)
	found := false

	start := kMin
	if start < 2 {
		start = 2
	}
	for k := start; k <= kEff; k++ {
		assignments, centroids, err := ClusterRecords(features, k, nil)
		if err != nil {
			continue
		}
		if hasDegenerateCluster(assignments, k) {
			continue
		}
		score := centroidSilhouette(features, assignments, centroids)
		if math.IsNaN(score) || math.IsInf(score, 0) {
			continue
		}
		if score > bestScore {
			bestK, bestScore = k, score
			found = true
		}
	}

	if !found {
		return kMin
	}
	return bestK
}

// hasDegenerateCluster reports whether the partition has fewer than two
// populated clusters or any cluster of size one, the cases where the
// separation score is undefined.
func hasDegenerateCluster(assignments []int, k int) bool {
	counts := make([]int, k)
	for _, a := range assignments {
		counts[a]++
	}
	populated := 0
	for _, c := range counts {
		if c == 1 {
			return true
		}
		if c > 0 {
			populated++
		}
	}
	return populated < 2
}

// RankClusters orders clusters by descending size, breaking ties by ascending
// label so the output order is stable.
func RankClusters(clusters []Cluster) {
	sort.SliceStable(clusters, func(i, j int) bool {
		if len(clusters[i].Members) != len(clusters[j].Members) {
			return len(clusters[i].Members) > len(clusters[j].Members)
		}
		return clusters[i].ID < clusters[j].ID
	})
}
