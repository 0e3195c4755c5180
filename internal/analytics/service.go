// Package analytics serves the staff statistics dashboard: aggregates are
// read from the café API and cached briefly in Redis, exports are handed
// out as one-time download tokens.
package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/cafe-cart/internal/cafeapi"
)

// Groupings accepted by the statistics endpoint.
var groupings = map[string]bool{"individual": true, "day": true, "week": true, "month": true}

// Export kinds accepted by the export endpoint.
var exportTypes = map[string]bool{"statsExport": true, "ordersExport": true}

var (
	// ErrInvalidGrouping is returned for an unknown "by" value.
	ErrInvalidGrouping = errors.New("analytics: by must be individual, day, week or month")
	// ErrInvalidExport is returned for an unknown export type.
	ErrInvalidExport = errors.New("analytics: type must be statsExport or ordersExport")
)

// StatsAPI is the part of the café API that serves statistics.
type StatsAPI interface {
	Stats(ctx context.Context, by string, limit int, token string) cafeapi.Result[cafeapi.StatsAggregate]
	StatsExportToken(ctx context.Context, exportType, by string, limit int, token string) cafeapi.Result[string]
	MeStatistics(ctx context.Context, token string) cafeapi.Result[cafeapi.UserStatistics]
}

// Service provides cached access to café statistics.
type Service struct {
	API          StatsAPI
	R            redis.Cmdable
	TTL          time.Duration
	DefaultLimit int
	MaxLimit     int
	Logger       zerolog.Logger
}

func cacheKey(parts ...any) string {
	formatted := make([]string, 0, len(parts))
	for _, part := range parts {
		formatted = append(formatted, fmt.Sprint(part))
	}
	return strings.Join(formatted, ":")
}

// Limit normalises a requested row limit.
func (s *Service) Limit(requested int) int {
	limit := requested
	if limit <= 0 {
		limit = s.DefaultLimit
	}
	if limit <= 0 {
		limit = 180
	}
	if s.MaxLimit > 0 && limit > s.MaxLimit {
		limit = s.MaxLimit
	}
	return limit
}

// Stats returns the aggregate grouped by "by". Aggregates are the same for
// every staff member so the cache is shared.
func (s *Service) Stats(ctx context.Context, by string, limit int, token string) (cafeapi.StatsAggregate, error) {
	if s == nil || s.API == nil {
		return cafeapi.StatsAggregate{}, errors.New("analytics service not configured")
	}
	if !groupings[by] {
		return cafeapi.StatsAggregate{}, ErrInvalidGrouping
	}
	limit = s.Limit(limit)
	key := cacheKey("an", "stats", by, limit)
	var agg cafeapi.StatsAggregate
	if s.load(ctx, key, &agg) {
		return agg, nil
	}
	agg, err := s.API.Stats(ctx, by, limit, token).Unwrap()
	if err != nil {
		return cafeapi.StatsAggregate{}, err
	}
	s.store(ctx, key, agg)
	return agg, nil
}

// ExportToken requests a download token. Tokens are single use and never cached.
func (s *Service) ExportToken(ctx context.Context, exportType, by string, limit int, token string) (string, error) {
	if s == nil || s.API == nil {
		return "", errors.New("analytics service not configured")
	}
	if !exportTypes[exportType] {
		return "", ErrInvalidExport
	}
	if !groupings[by] {
		return "", ErrInvalidGrouping
	}
	return s.API.StatsExportToken(ctx, exportType, by, s.Limit(limit), token).Unwrap()
}

// Personal returns the signed-in user's own statistics. They are per user
// and change with every order, so they are not cached.
func (s *Service) Personal(ctx context.Context, token string) (cafeapi.UserStatistics, error) {
	if s == nil || s.API == nil {
		return cafeapi.UserStatistics{}, errors.New("analytics service not configured")
	}
	return s.API.MeStatistics(ctx, token).Unwrap()
}

func (s *Service) load(ctx context.Context, key string, dst any) bool {
	if s.R == nil || s.TTL <= 0 {
		return false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.Logger.Warn().Err(err).Str("key", key).Msg("stats_cache_read_failed")
		}
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (s *Service) store(ctx context.Context, key string, value any) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.R.Set(ctx, key, data, s.TTL).Err(); err != nil {
		s.Logger.Warn().Err(err).Str("key", key).Msg("stats_cache_write_failed")
	}
}
