package visibility

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"route-scheduling-service/internal/domain"
	"route-scheduling-service/internal/platform/obs"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	hiddenKeyPrefix = "visibility:hidden:"
	templatesKey    = "visibility:templates"
)

// RedisStore keeps hide state as one JSON document per plan date and all
// hide templates as a single JSON document.
type RedisStore struct {
	rdb       *redis.Client
	hiddenTTL time.Duration
}

// NewRedisStore connects using a redis:// URL. A positive hiddenTTL expires
// per-date hide state; templates never expire.
func NewRedisStore(url string, hiddenTTL time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis store: parse url: %w", err)
	}
	return &RedisStore{rdb: redis.NewClient(opt), hiddenTTL: hiddenTTL}, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) LoadHidden(ctx context.Context, date string) (_ map[string]domain.HideRecord, err error) {
	defer obs.Time(ctx, "visibility.LoadHidden")(&err)

	out := map[string]domain.HideRecord{}
	if err := s.load(ctx, hiddenKeyPrefix+date, &out); err != nil {
		return nil, fmt.Errorf("load hidden for %s: %w", date, err)
	}
	return out, nil
}

func (s *RedisStore) SaveHidden(ctx context.Context, date string, records map[string]domain.HideRecord) (err error) {
	defer obs.Time(ctx, "visibility.SaveHidden")(&err)

	key := hiddenKeyPrefix + date
	if len(records) == 0 {
		if err := s.rdb.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("clear hidden for %s: %w", date, err)
		}
		return nil
	}
	if err := s.save(ctx, key, records, s.hiddenTTL); err != nil {
		return fmt.Errorf("save hidden for %s: %w", date, err)
	}
	return nil
}

func (s *RedisStore) LoadTemplates(ctx context.Context) (_ map[string]domain.HideTemplate, err error) {
	defer obs.Time(ctx, "visibility.LoadTemplates")(&err)

	out := map[string]domain.HideTemplate{}
	if err := s.load(ctx, templatesKey, &out); err != nil {
		return nil, fmt.Errorf("load hide templates: %w", err)
	}
	return out, nil
}

func (s *RedisStore) SaveTemplates(ctx context.Context, templates map[string]domain.HideTemplate) (err error) {
	defer obs.Time(ctx, "visibility.SaveTemplates")(&err)

	if err := s.save(ctx, templatesKey, templates, 0); err != nil {
		return fmt.Errorf("save hide templates: %w", err)
	}
	return nil
}

// load leaves out untouched when the key does not exist.
func (s *RedisStore) load(ctx context.Context, key string, out any) error {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) save(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.rdb.Set(ctx, key, data, ttl).Err()
}
