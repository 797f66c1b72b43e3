package services

import (
	"fmt"
	"math/rand"
	"route-scheduling-service/internal/domain"
	"sync"
	"testing"
)

func located(id string, c domain.Coordinates) domain.DeliveryPoint {
	return domain.DeliveryPoint{ID: id, Coordinates: &c}
}

func sizes(groups [][]domain.DeliveryPoint) []int {
	out := make([]int, len(groups))
	for i, g := range groups {
		out[i] = len(g)
	}
	return out
}

func TestSplitIsBalanced(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		rng := rand.New(rand.NewSource(seed))
		n := 2 + rng.Intn(40)

		points := make([]domain.DeliveryPoint, n)
		for i := range points {
			points[i] = located(fmt.Sprintf("p%d", i), domain.Coordinates{
				Lon: -112.3 + rng.Float64()*0.6,
				Lat: 33.2 + rng.Float64()*0.6,
			})
		}

		for k := 1; k <= 10 && k <= n; k++ {
			groups, err := NewGeoClusterer(rand.New(rand.NewSource(seed))).Split(points, k)
			if err != nil {
				t.Fatalf("seed %d k %d: unexpected error: %v", seed, k, err)
			}
			if len(groups) != k {
				t.Fatalf("seed %d k %d: expected %d groups, got %d", seed, k, k, len(groups))
			}

			lo, hi := n, 0
			seen := map[string]int{}
			for _, g := range groups {
				lo, hi = min(lo, len(g)), max(hi, len(g))
				for _, p := range g {
					seen[p.ID]++
				}
			}
			if hi-lo > 1 {
				t.Fatalf("seed %d k %d: unbalanced sizes %v", seed, k, sizes(groups))
			}
			if len(seen) != n {
				t.Fatalf("seed %d k %d: expected %d distinct points, got %d", seed, k, n, len(seen))
			}
			for id, c := range seen {
				if c != 1 {
					t.Fatalf("seed %d k %d: point %s assigned %d times", seed, k, id, c)
				}
			}
		}
	}
}

func TestSplitSeparatesDistantAreas(t *testing.T) {
	var points []domain.DeliveryPoint
	for i := 0; i < 4; i++ {
		d := float64(i) * 0.002
		points = append(points,
			located(fmt.Sprintf("phx%d", i), domain.Coordinates{Lon: -112.07 + d, Lat: 33.45 + d}),
			located(fmt.Sprintf("tus%d", i), domain.Coordinates{Lon: -110.97 + d, Lat: 32.22 + d}),
		)
	}

	for seed := int64(1); seed <= 10; seed++ {
		groups, err := NewGeoClusterer(rand.New(rand.NewSource(seed))).Split(points, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, g := range groups {
			if len(g) != 4 {
				t.Fatalf("seed %d: expected 4/4 split, got %v", seed, sizes(groups))
			}
			city := g[0].ID[:3]
			for _, p := range g {
				if p.ID[:3] != city {
					t.Fatalf("seed %d: group mixes areas: %v", seed, g)
				}
			}
		}
	}
}

func TestSplitRebalancesLopsidedClusters(t *testing.T) {
	var points []domain.DeliveryPoint
	for i := 0; i < 6; i++ {
		d := float64(i) * 0.01
		points = append(points, located(fmt.Sprintf("phx%d", i), domain.Coordinates{Lon: -112.07 + d, Lat: 33.45}))
	}
	points = append(points,
		located("tus0", domain.Coordinates{Lon: -110.97, Lat: 32.22}),
		located("tus1", domain.Coordinates{Lon: -110.96, Lat: 32.23}),
	)

	groups, err := NewGeoClusterer(rand.New(rand.NewSource(7))).Split(points, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := sizes(groups); got[0] != 4 || got[1] != 4 {
		t.Fatalf("expected 4/4 after balancing, got %v", got)
	}

	for _, g := range groups {
		tucson := 0
		for _, p := range g {
			if p.ID[:3] == "tus" {
				tucson++
			}
		}
		if tucson != 0 && tucson != 2 {
			t.Fatalf("expected Tucson points to stay together, got group %v", g)
		}
	}
}

func TestSplitMoreDriversThanPoints(t *testing.T) {
	points := []domain.DeliveryPoint{
		located("a", phoenixPts[0]),
		located("b", phoenixPts[1]),
		located("c", phoenixPts[2]),
	}

	groups, err := NewGeoClusterer(rand.New(rand.NewSource(1))).Split(points, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{1, 1, 1, 0, 0}
	got := sizes(groups)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected sizes %v, got %v", want, got)
		}
	}
	if groups[0][0].ID != "a" || groups[2][0].ID != "c" {
		t.Fatalf("expected one point per group in input order, got %v", groups)
	}
}

func TestSplitIsReproducibleWithSeed(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	points := make([]domain.DeliveryPoint, 20)
	for i := range points {
		points[i] = located(fmt.Sprintf("p%d", i), domain.Coordinates{Lon: -112 + rng.Float64()*0.5, Lat: 33.3 + rng.Float64()*0.5})
	}

	a, _ := NewGeoClusterer(rand.New(rand.NewSource(42))).Split(points, 4)
	b, _ := NewGeoClusterer(rand.New(rand.NewSource(42))).Split(points, 4)
	for i := range a {
		if len(a[i]) != len(b[i]) {
			t.Fatalf("group %d differs in size", i)
		}
		for j := range a[i] {
			if a[i][j].ID != b[i][j].ID {
				t.Fatalf("group %d differs at %d: %s vs %s", i, j, a[i][j].ID, b[i][j].ID)
			}
		}
	}
}

func TestSplitSharedAcrossGoroutines(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	points := make([]domain.DeliveryPoint, 30)
	for i := range points {
		points[i] = located(fmt.Sprintf("p%d", i), domain.Coordinates{
			Lon: -112.3 + rng.Float64()*0.6,
			Lat: 33.2 + rng.Float64()*0.6,
		})
	}

	g := NewGeoClusterer(rand.New(rand.NewSource(1)))
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				groups, err := g.Split(points, 3)
				if err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
				if got := sizes(groups); got[0]+got[1]+got[2] != len(points) {
					t.Errorf("lost points: %v", got)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestSplitRejectsBadInput(t *testing.T) {
	c := NewGeoClusterer(nil)
	if _, err := c.Split([]domain.DeliveryPoint{located("a", hub)}, 0); err == nil {
		t.Fatalf("expected error for k=0")
	}
	if _, err := c.Split([]domain.DeliveryPoint{{ID: "nocoords"}}, 1); err == nil {
		t.Fatalf("expected error for point without coordinates")
	}
}
