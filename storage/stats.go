package storage

import (
	"github.com/go-redis/redis/v7"
	"sync"
	"time"
)

const dateLayout = "02.01.06"

// Stats keeps daily counters of the service
type Stats interface {
	IncrVisits() (int64, error)
	GetVisitsByDate(date time.Time) (int64, error)
	IncrRoomsCreated() (int64, error)
	GetRoomsCreatedByDate(date time.Time) (int64, error)
}

// ParseDate parses dates in the counters key format (dd.mm.yy)
func ParseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

type redisStats struct {
	rdb *redis.Client
}

func NewRedisStats(rdb *redis.Client) Stats {
	return &redisStats{rdb: rdb}
}

func (s *redisStats) IncrVisits() (int64, error) {
	return s.rdb.Incr("visits:" + FormatDate(time.Now())).Result()
}

func (s *redisStats) GetVisitsByDate(date time.Time) (int64, error) {
	return s.get("visits:" + FormatDate(date))
}

func (s *redisStats) IncrRoomsCreated() (int64, error) {
	return s.rdb.Incr("rooms_created:" + FormatDate(time.Now())).Result()
}

func (s *redisStats) GetRoomsCreatedByDate(date time.Time) (int64, error) {
	return s.get("rooms_created:" + FormatDate(date))
}

func (s *redisStats) get(key string) (int64, error) {
	n, err := s.rdb.Get(key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

// memoryStats is used when no redis is configured, counters die with the process
type memoryStats struct {
	sync.Mutex
	counters map[string]int64
	now      func() time.Time
}

func NewMemoryStats() Stats {
	return &memoryStats{
		counters: make(map[string]int64),
		now:      time.Now,
	}
}

func (s *memoryStats) incr(key string) (int64, error) {
	s.Lock()
	defer s.Unlock()
	s.counters[key]++
	return s.counters[key], nil
}

func (s *memoryStats) get(key string) (int64, error) {
	s.Lock()
	defer s.Unlock()
	return s.counters[key], nil
}

func (s *memoryStats) IncrVisits() (int64, error) {
	return s.incr("visits:" + FormatDate(s.now()))
}

func (s *memoryStats) GetVisitsByDate(date time.Time) (int64, error) {
	return s.get("visits:" + FormatDate(date))
}

func (s *memoryStats) IncrRoomsCreated() (int64, error) {
	return s.incr("rooms_created:" + FormatDate(s.now()))
}

func (s *memoryStats) GetRoomsCreatedByDate(date time.Time) (int64, error) {
	return s.get("rooms_created:" + FormatDate(date))
}
