package services

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// KMeansConfig makes the seed and initialization count explicit so clustering
// results are reproducible across runs.
type KMeansConfig struct {
	K       int
	Seed    int64
	MaxIter int
	NumInit int
}

// DefaultKMeansConfig mirrors the engine's fixed clustering parameters.
func DefaultKMeansConfig(k int) KMeansConfig {
	return KMeansConfig{K: k, Seed: 42, MaxIter: 300, NumInit: 10}
}

// NormalizeRows scales each vector to unit length in place, so Euclidean
// clustering behaves like cosine distance.
func NormalizeRows(points [][]float64) {
	for _, p := range points {
		norm := floats.Norm(p, 2)
		if norm > 0 {
			floats.Scale(1/norm, p)
		}
	}
}

// KMeans partitions points into cfg.K clusters and returns one label per
// point. Runs cfg.NumInit seeded k-means++ initializations and keeps the
// labeling with the lowest inertia.
func KMeans(points [][]float64, cfg KMeansConfig) []int {
	n := len(points)
	labels := make([]int, n)
	if n == 0 || cfg.K <= 1 {
		return labels
	}
	if cfg.K >= n {
		for i := range labels {
			labels[i] = i
		}
		return labels
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	maxIter := cfg.MaxIter
	if maxIter <= 0 {
		maxIter = 300
	}
	numInit := cfg.NumInit
	if numInit <= 0 {
		numInit = 1
	}

	bestInertia := math.Inf(1)
	for init := 0; init < numInit; init++ {
		candidate, inertia := runLloyd(points, cfg.K, maxIter, rng)
		if inertia < bestInertia {
			bestInertia = inertia
			copy(labels, candidate)
		}
	}
	return labels
}

func runLloyd(points [][]float64, k, maxIter int, rng *rand.Rand) ([]int, float64) {
	n := len(points)
	dim := len(points[0])
	centroids := initCentroids(points, k, rng)
	labels := make([]int, n)

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, p := range points {
			best := nearestCentroid(p, centroids)
			if best != labels[i] {
				labels[i] = best
				changed = true
			}
		}

		counts := make([]int, k)
		sums := make([][]float64, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, p := range points {
			counts[labels[i]]++
			floats.Add(sums[labels[i]], p)
		}
		for c := range centroids {
			// A centroid that lost all members keeps its position.
			if counts[c] > 0 {
				floats.Scale(1/float64(counts[c]), sums[c])
				centroids[c] = sums[c]
			}
		}

		if !changed && iter > 0 {
			break
		}
	}

	inertia := 0.0
	for i, p := range points {
		d := floats.Distance(p, centroids[labels[i]], 2)
		inertia += d * d
	}
	return labels, inertia
}

// initCentroids runs k-means++ seeding: the first centroid is uniform random,
// the rest are sampled proportionally to squared distance from the nearest
// already-chosen centroid.
func initCentroids(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(points)
	centroids := make([][]float64, 0, k)
	first := append([]float64(nil), points[rng.Intn(n)]...)
	centroids = append(centroids, first)

	dists := make([]float64, n)
	for len(centroids) < k {
		total := 0.0
		for i, p := range points {
			d := floats.Distance(p, centroids[nearestCentroid(p, centroids)], 2)
			dists[i] = d * d
			total += dists[i]
		}
		var next int
		if total == 0 {
			next = rng.Intn(n)
		} else {
			target := rng.Float64() * total
			acc := 0.0
			for i, d := range dists {
				acc += d
				if acc >= target {
					next = i
					break
				}
			}
		}
		centroids = append(centroids, append([]float64(nil), points[next]...))
	}
	return centroids
}

func nearestCentroid(p []float64, centroids [][]float64) int {
	best := 0
	bestDist := math.Inf(1)
	for c, centroid := range centroids {
		if d := floats.Distance(p, centroid, 2); d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}
