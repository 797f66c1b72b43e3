package services

// NearestNeighborOrder sequences matrix nodes 1..n-1 starting from node 0.
//
// At each step the unvisited node with the minimum distance from the current
// node is chosen; equal distances go to the lowest matrix index.
// It does not attempt global route optimization (e.g., TSP/VRP solvers).
func NearestNeighborOrder(distances [][]float64) []int {
	n := len(distances)
	if n <= 1 {
		return []int{}
	}

	visited := make([]bool, n)
	visited[0] = true

	order := make([]int, 0, n-1)
	current := 0
	for len(order) < n-1 {
		best := -1
		for j := 1; j < n; j++ {
			if visited[j] {
				continue
			}
			// Strict comparison keeps the lowest index on ties.
			if best == -1 || distances[current][j] < distances[current][best] {
				best = j
			}
		}

		visited[best] = true
		order = append(order, best)
		current = best
	}
	return order
}
