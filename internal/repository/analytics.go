package repository

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	keyPrefix       = "metrics:"
	keyCommands     = keyPrefix + "commands"
	keyGlobalTotal  = keyPrefix + "global:total"
	keyGlobalErrors = keyPrefix + "global:error"
	keyGlobalSum    = keyPrefix + "global:latency_sum"
	keyStartTime    = keyPrefix + "server:start_time"

	dailyRetention = 30 * 24 * time.Hour
	topCommands    = 10
	trendDays      = 7
)

// updateLatencyBounds keeps min_latency / max_latency of a command hash
var updateLatencyBounds = redis.NewScript(`
local v = tonumber(ARGV[1])
local cur = redis.call('HGET', KEYS[1], 'min_latency')
if (not cur) or v < tonumber(cur) then
	redis.call('HSET', KEYS[1], 'min_latency', ARGV[1])
end
cur = redis.call('HGET', KEYS[1], 'max_latency')
if (not cur) or v > tonumber(cur) then
	redis.call('HSET', KEYS[1], 'max_latency', ARGV[1])
end
return 1
`)

// Analytics stores chat command statistics in Redis.
// Only counters are kept; fetched Bangumi data is never stored.
type Analytics struct {
	client *redis.Client
	now    func() time.Time
}

// CommandStats represents statistics for one chat command
type CommandStats struct {
	Command      string  `json:"command"`
	TotalCalls   int64   `json:"total_calls"`
	SuccessCalls int64   `json:"success_calls"`
	ErrorCalls   int64   `json:"error_calls"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	MaxLatencyMs float64 `json:"max_latency_ms"`
	MinLatencyMs float64 `json:"min_latency_ms"`
}

// DailyStats represents daily command statistics
type DailyStats struct {
	Date       string  `json:"date"`
	TotalCalls int64   `json:"total_calls"`
	AvgLatency float64 `json:"avg_latency"`
}

// OverallStats represents overall statistics
type OverallStats struct {
	TotalCommands int64          `json:"total_commands"`
	TodayCommands int64          `json:"today_commands"`
	AvgLatencyMs  float64        `json:"avg_latency_ms"`
	ErrorRate     float64        `json:"error_rate"`
	TopCommands   []CommandStats `json:"top_commands"`
	DailyTrend    []DailyStats   `json:"daily_trend"`
	Uptime        int64          `json:"uptime_seconds"`
}

// NewAnalytics connects to Redis and creates an Analytics instance
func NewAnalytics(redisURL string) (*Analytics, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	// 只记录地址，不记录完整 URL（可能包含密码）
	log.Info().Str("addr", opt.Addr).Msg("✅ Redis connected")

	return &Analytics{client: client, now: time.Now}, nil
}

func commandKey(command string) string {
	return keyPrefix + "command:" + command
}

func dailyKey(date string) string {
	return keyPrefix + "daily:" + date
}

// RecordCommand records one dispatched command
func (a *Analytics) RecordCommand(ctx context.Context, command string, failed bool, latencyMs float64) error {
	now := a.now()
	today := now.Format("2006-01-02")
	cmdKey := commandKey(command)

	pipe := a.client.Pipeline()

	pipe.HIncrBy(ctx, cmdKey, "total", 1)
	pipe.HIncrByFloat(ctx, cmdKey, "latency_sum", latencyMs)
	updateLatencyBounds.Eval(ctx, pipe, []string{cmdKey}, latencyMs)

	if failed {
		pipe.HIncrBy(ctx, cmdKey, "error", 1)
		pipe.Incr(ctx, keyGlobalErrors)
	} else {
		pipe.HIncrBy(ctx, cmdKey, "success", 1)
	}

	day := dailyKey(today)
	pipe.HIncrBy(ctx, day, "total", 1)
	pipe.HIncrByFloat(ctx, day, "latency_sum", latencyMs)
	pipe.Expire(ctx, day, dailyRetention)

	pipe.Incr(ctx, keyGlobalTotal)
	pipe.IncrByFloat(ctx, keyGlobalSum, latencyMs)
	pipe.SAdd(ctx, keyCommands, command)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Str("command", command).Msg("Failed to record command analytics")
		return err
	}
	return nil
}

// GetCommandStats gets statistics for a single command
func (a *Analytics) GetCommandStats(ctx context.Context, command string) (*CommandStats, error) {
	result, err := a.client.HGetAll(ctx, commandKey(command)).Result()
	if err != nil {
		return nil, err
	}

	if len(result) == 0 {
		return &CommandStats{Command: command}, nil
	}

	total, _ := strconv.ParseInt(result["total"], 10, 64)
	success, _ := strconv.ParseInt(result["success"], 10, 64)
	errCount, _ := strconv.ParseInt(result["error"], 10, 64)
	latencySum, _ := strconv.ParseFloat(result["latency_sum"], 64)
	minLatency, _ := strconv.ParseFloat(result["min_latency"], 64)
	maxLatency, _ := strconv.ParseFloat(result["max_latency"], 64)

	avgLatency := 0.0
	if total > 0 {
		avgLatency = latencySum / float64(total)
	}

	return &CommandStats{
		Command:      command,
		TotalCalls:   total,
		SuccessCalls: success,
		ErrorCalls:   errCount,
		AvgLatencyMs: avgLatency,
		MaxLatencyMs: maxLatency,
		MinLatencyMs: minLatency,
	}, nil
}

// GetOverallStats gets overall statistics
func (a *Analytics) GetOverallStats(ctx context.Context) (*OverallStats, error) {
	stats := &OverallStats{}

	total, err := a.client.Get(ctx, keyGlobalTotal).Int64()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	latencySum, _ := a.client.Get(ctx, keyGlobalSum).Float64()
	errCount, _ := a.client.Get(ctx, keyGlobalErrors).Int64()
	stats.TotalCommands = total

	if total > 0 {
		stats.AvgLatencyMs = latencySum / float64(total)
		stats.ErrorRate = float64(errCount) / float64(total) * 100
	}

	today := a.now().Format("2006-01-02")
	stats.TodayCommands, _ = a.client.HGet(ctx, dailyKey(today), "total").Int64()

	commands, err := a.client.SMembers(ctx, keyCommands).Result()
	if err != nil {
		return nil, err
	}
	all := make([]CommandStats, 0, len(commands))
	for _, command := range commands {
		cmdStats, err := a.GetCommandStats(ctx, command)
		if err == nil && cmdStats.TotalCalls > 0 {
			all = append(all, *cmdStats)
		}
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].TotalCalls != all[j].TotalCalls {
			return all[i].TotalCalls > all[j].TotalCalls
		}
		return all[i].Command < all[j].Command
	})
	if len(all) > topCommands {
		all = all[:topCommands]
	}
	stats.TopCommands = all

	stats.DailyTrend = a.getDailyTrend(ctx, trendDays)

	startTime, err := a.client.Get(ctx, keyStartTime).Int64()
	if err == nil && startTime > 0 {
		stats.Uptime = a.now().Unix() - startTime
	}

	return stats, nil
}

// getDailyTrend gets daily statistics for the last N days, oldest first
func (a *Analytics) getDailyTrend(ctx context.Context, days int) []DailyStats {
	trend := make([]DailyStats, 0, days)
	now := a.now()

	for i := days - 1; i >= 0; i-- {
		date := now.AddDate(0, 0, -i).Format("2006-01-02")

		result, err := a.client.HGetAll(ctx, dailyKey(date)).Result()
		if err != nil {
			continue
		}

		total, _ := strconv.ParseInt(result["total"], 10, 64)
		latencySum, _ := strconv.ParseFloat(result["latency_sum"], 64)

		avgLatency := 0.0
		if total > 0 {
			avgLatency = latencySum / float64(total)
		}

		trend = append(trend, DailyStats{
			Date:       date,
			TotalCalls: total,
			AvgLatency: avgLatency,
		})
	}

	return trend
}

// RecordServerStart records server start time
func (a *Analytics) RecordServerStart(ctx context.Context) error {
	return a.client.Set(ctx, keyStartTime, a.now().Unix(), 0).Err()
}

// ResetMetrics deletes all analytics counters.
// The server start time survives so uptime keeps counting.
func (a *Analytics) ResetMetrics(ctx context.Context) error {
	var keys []string
	iter := a.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if key := iter.Val(); key != keyStartTime {
			keys = append(keys, key)
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}

	if len(keys) > 0 {
		return a.client.Del(ctx, keys...).Err()
	}
	return nil
}

// Close closes the Redis connection
func (a *Analytics) Close() error {
	return a.client.Close()
}
