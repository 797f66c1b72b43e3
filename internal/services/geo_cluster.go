package services

import (
	"math"
	"math/rand"
	"route-scheduling-service/internal/domain"
	"sort"
	"sync"
	"time"
)

const (
	kmeansMaxIterations     = 100
	kmeansConvergenceMeters = 1.0
)

// GeoClusterer partitions geocoded points into size-balanced geographic groups.
// It is safe for concurrent use; access to the random source is serialized.
type GeoClusterer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGeoClusterer uses rng for centroid sampling; nil seeds from the clock.
func NewGeoClusterer(rng *rand.Rand) *GeoClusterer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &GeoClusterer{rng: rng}
}

// Split returns exactly k groups. Whenever len(points) >= k the group sizes
// differ by at most one. Points keep their input order inside a group.
func (g *GeoClusterer) Split(points []domain.DeliveryPoint, k int) ([][]domain.DeliveryPoint, error) {
	if k < 1 {
		return nil, &domain.ValidationError{Field: "driverCount", Reason: "must be at least 1"}
	}
	for _, p := range points {
		if p.Coordinates == nil {
			return nil, &domain.ValidationError{Field: "points", Reason: "point " + p.ID + " has no coordinates"}
		}
	}

	groups := make([][]domain.DeliveryPoint, k)
	for i := range groups {
		groups[i] = []domain.DeliveryPoint{}
	}

	n := len(points)
	if n == 0 {
		return groups, nil
	}
	if k >= n {
		for i, p := range points {
			groups[i] = append(groups[i], p)
		}
		return groups, nil
	}

	coords := make([]domain.Coordinates, n)
	for i, p := range points {
		coords[i] = *p.Coordinates
	}

	assignment, centroids := g.kmeans(coords, k)
	clusters := make([][]int, k)
	for i, c := range assignment {
		clusters[c] = append(clusters[c], i)
	}

	balance(clusters, centroids, coords)

	for c, members := range clusters {
		sort.Ints(members)
		for _, i := range members {
			groups[c] = append(groups[c], points[i])
		}
	}
	return groups, nil
}

func (g *GeoClusterer) kmeans(coords []domain.Coordinates, k int) ([]int, []domain.Coordinates) {
	g.mu.Lock()
	perm := g.rng.Perm(len(coords))
	g.mu.Unlock()

	centroids := make([]domain.Coordinates, k)
	for c, i := range perm[:k] {
		centroids[c] = coords[i]
	}

	assignment := make([]int, len(coords))
	for iter := 0; iter < kmeansMaxIterations; iter++ {
		for i, p := range coords {
			assignment[i] = nearestCentroid(p, centroids)
		}

		sums := make([]domain.Coordinates, k)
		counts := make([]int, k)
		for i, c := range assignment {
			sums[c].Lon += coords[i].Lon
			sums[c].Lat += coords[i].Lat
			counts[c]++
		}

		movement := 0.0
		for c := range centroids {
			// Empty clusters keep their previous centroid.
			if counts[c] == 0 {
				continue
			}
			next := domain.Coordinates{
				Lon: sums[c].Lon / float64(counts[c]),
				Lat: sums[c].Lat / float64(counts[c]),
			}
			movement = math.Max(movement, domain.HaversineMeters(centroids[c], next))
			centroids[c] = next
		}

		if movement < kmeansConvergenceMeters {
			break
		}
	}
	return assignment, centroids
}

func nearestCentroid(p domain.Coordinates, centroids []domain.Coordinates) int {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := domain.HaversineMeters(p, centroid); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// balance moves points from over-capacity clusters to under-capacity ones.
// Clusters are ranked by size (largest first, ties by index); the first n mod k
// ranked clusters may hold floor(n/k)+1 points, the others floor(n/k).
func balance(clusters [][]int, centroids, coords []domain.Coordinates) {
	k := len(clusters)
	n := 0
	for _, c := range clusters {
		n += len(c)
	}

	ranked := make([]int, k)
	for i := range ranked {
		ranked[i] = i
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return len(clusters[ranked[a]]) > len(clusters[ranked[b]])
	})

	capacity := make([]int, k)
	for r, c := range ranked {
		capacity[c] = n / k
		if r < n%k {
			capacity[c]++
		}
	}

	for {
		donor, receiver := -1, -1
		for c := range clusters {
			over := len(clusters[c]) - capacity[c]
			under := capacity[c] - len(clusters[c])
			if over > 0 && (donor == -1 || over > len(clusters[donor])-capacity[donor]) {
				donor = c
			}
			if under > 0 && (receiver == -1 || under > capacity[receiver]-len(clusters[receiver])) {
				receiver = c
			}
		}
		if donor == -1 || receiver == -1 {
			return
		}

		pick, pickDist := 0, math.Inf(1)
		for pos, i := range clusters[donor] {
			if d := domain.HaversineMeters(coords[i], centroids[receiver]); d < pickDist {
				pick, pickDist = pos, d
			}
		}

		moved := clusters[donor][pick]
		clusters[donor] = append(clusters[donor][:pick], clusters[donor][pick+1:]...)
		clusters[receiver] = append(clusters[receiver], moved)
	}
}
