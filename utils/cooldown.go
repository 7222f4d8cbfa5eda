package utils

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type memEntry struct {
	count     int
	expiresAt time.Time
}

var (
	memStore   = map[string]memEntry{}
	memStoreMu sync.Mutex
)

// CooldownTrySet sets a cooldown key. Returns true if set, false if still cooling down.
func CooldownTrySet(key string, cooldown time.Duration) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		ok, err := rc.SetNX(ctx, "cooldown:"+key, "1", cooldown).Result()
		if err == nil {
			return ok
		}
		// fall through to memory on redis errors
	}
	memStoreMu.Lock()
	defer memStoreMu.Unlock()
	if e, ok := memStore["cooldown:"+key]; ok && time.Now().Before(e.expiresAt) {
		return false
	}
	memStore["cooldown:"+key] = memEntry{count: 1, expiresAt: time.Now().Add(cooldown)}
	return true
}

func dailyKey(ip string) string {
	return "reg:succday:" + ip + ":" + time.Now().Format("20060102")
}

// RegistrationDailyLimitCheck allows up to limit successful registrations per day per IP.
func RegistrationDailyLimitCheck(ip string, limit int) bool {
	if limit <= 0 {
		return true
	}
	key := dailyKey(ip)
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		n, err := rc.Get(ctx, key).Int()
		if err == redis.Nil {
			return true
		}
		if err == nil {
			return n < limit
		}
	}
	memStoreMu.Lock()
	defer memStoreMu.Unlock()
	e, ok := memStore[key]
	if !ok || time.Now().After(e.expiresAt) {
		return true
	}
	return e.count < limit
}

// RegistrationDailyIncrement increments the success counter for today.
func RegistrationDailyIncrement(ip string) {
	key := dailyKey(ip)
	ttl := time.Until(time.Now().Truncate(24 * time.Hour).Add(24 * time.Hour))
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		if err := rc.Incr(ctx, key).Err(); err == nil {
			_ = rc.Expire(ctx, key, ttl).Err()
			return
		}
	}
	memStoreMu.Lock()
	e := memStore[key]
	e.count++
	e.expiresAt = time.Now().Add(ttl)
	memStore[key] = e
	memStoreMu.Unlock()
}
