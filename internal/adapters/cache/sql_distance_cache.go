package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"route-scheduling-service/internal/domain"
	"route-scheduling-service/internal/platform/obs"
	"strconv"
)

// SQLDistanceCache is a SQL-backed cache of pairwise leg metrics keyed by coordinate.
type SQLDistanceCache struct {
	DB *sql.DB
}

func NewSQLDistanceCache(db *sql.DB) *SQLDistanceCache {
	return &SQLDistanceCache{DB: db}
}

// CoordinateKey renders a coordinate as a stable cache key (about 0.1 m precision).
func CoordinateKey(c domain.Coordinates) string {
	return strconv.FormatFloat(c.Lon, 'f', 6, 64) + "," + strconv.FormatFloat(c.Lat, 'f', 6, 64)
}

// GetMatrix assembles a full matrix from cached legs. It reports false unless every
// off-diagonal pair is cached.
func (s *SQLDistanceCache) GetMatrix(
	ctx context.Context,
	coords []domain.Coordinates,
) (_ domain.DistanceMatrix, _ bool, err error) {
	defer obs.Time(ctx, "distance.cache.GetMatrix")(&err)

	if s.DB == nil {
		return domain.DistanceMatrix{}, false, errors.New("distance cache: db is nil")
	}

	n := len(coords)
	if n == 0 {
		return domain.DistanceMatrix{}, false, nil
	}

	index := make(map[string]int, n)
	keys := make([]string, 0, n)
	for i, c := range coords {
		k := CoordinateKey(c)
		if _, ok := index[k]; ok {
			// Duplicate coordinates make the key->index mapping ambiguous.
			return domain.DistanceMatrix{}, false, nil
		}
		index[k] = i
		keys = append(keys, k)
	}

	q := `
	SELECT origin, destination, distance_meters, duration_seconds
    FROM distance_cache
    WHERE origin = ANY($1::text[])
        AND destination = ANY($1::text[]);
	`

	rows, err := s.DB.QueryContext(ctx, q, keys)
	if err != nil {
		return domain.DistanceMatrix{}, false, fmt.Errorf("get distance cache: query distance_cache table: %w", err)
	}
	defer rows.Close()

	m := newMatrix(n)
	found := 0
	for rows.Next() {
		var origin, dest string
		var meters, seconds float64
		if err := rows.Scan(&origin, &dest, &meters, &seconds); err != nil {
			return domain.DistanceMatrix{}, false, fmt.Errorf("get distance cache: scan rows: %w", err)
		}
		i, j := index[origin], index[dest]
		if i == j {
			continue
		}
		m.Distances[i][j] = meters
		m.Durations[i][j] = seconds
		found++
	}
	if err := rows.Err(); err != nil {
		return domain.DistanceMatrix{}, false, fmt.Errorf("get distance cache: row iteration: %w", err)
	}

	if found != n*(n-1) {
		return domain.DistanceMatrix{}, false, nil
	}
	return m, true, nil
}

// PutMatrix stores every off-diagonal leg of a matrix.
func (s *SQLDistanceCache) PutMatrix(ctx context.Context, coords []domain.Coordinates, m domain.DistanceMatrix) error {
	if s.DB == nil {
		return errors.New("distance cache: db is nil")
	}

	if len(m.Distances) != len(coords) || len(m.Durations) != len(coords) {
		return fmt.Errorf("insert distance cache: matrix size does not match %d coordinates", len(coords))
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert distance cache: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO distance_cache (origin, destination, distance_meters, duration_seconds)
    VALUES ($1, $2, $3, $4)
	ON CONFLICT (origin, destination) DO UPDATE
	SET distance_meters = EXCLUDED.distance_meters,
		duration_seconds = EXCLUDED.duration_seconds;
	`)
	if err != nil {
		return fmt.Errorf("insert distance cache: db prepare: %w", err)
	}
	defer stmt.Close()

	for i, from := range coords {
		origin := CoordinateKey(from)
		for j, to := range coords {
			if i == j {
				continue
			}
			dest := CoordinateKey(to)
			if _, err := stmt.ExecContext(ctx, origin, dest, m.Distances[i][j], m.Durations[i][j]); err != nil {
				return fmt.Errorf("insert distance cache %s -> %s: %w", origin, dest, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert distance cache commit: %w", err)
	}

	return nil
}

func newMatrix(n int) domain.DistanceMatrix {
	m := domain.DistanceMatrix{
		Distances: make([][]float64, n),
		Durations: make([][]float64, n),
	}
	for i := 0; i < n; i++ {
		m.Distances[i] = make([]float64, n)
		m.Durations[i] = make([]float64, n)
	}
	return m
}
