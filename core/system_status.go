package core

import (
	"bufio"
	"context"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// SystemStatus is the aggregated status reported to signed-in users.
type SystemStatus struct {
	Directory struct {
		Loaded     bool      `json:"loaded"`
		Users      int       `json:"users"`
		FetchedAt  time.Time `json:"fetched_at,omitempty"`
		AgeSeconds int64     `json:"age_seconds"`
	} `json:"directory"`
	Generation StatsCounters `json:"generation"`
	Memory     struct {
		UsedBytes  uint64 `json:"used_bytes"`
		TotalBytes uint64 `json:"total_bytes"`
		HeapBytes  uint64 `json:"heap_bytes"`
	} `json:"memory"`
	NumGoroutine  int   `json:"num_goroutine"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// CollectSystemStatus gathers the current status; every part is best-effort.
func CollectSystemStatus(ctx context.Context, cache *DirectoryCache, stats GenerationStats, startedAt time.Time) SystemStatus {
	var st SystemStatus

	if cache != nil {
		if users, fetchedAt, ok := cache.Stats(); ok {
			st.Directory.Loaded = true
			st.Directory.Users = users
			st.Directory.FetchedAt = fetchedAt
			st.Directory.AgeSeconds = int64(time.Since(fetchedAt).Seconds())
		}
	}

	if stats != nil {
		if snap, err := stats.Snapshot(ctx, ""); err == nil {
			st.Generation = snap.Total
		}
	}

	used, total := readMemInfo()
	st.Memory.UsedBytes = used
	st.Memory.TotalBytes = total
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	st.Memory.HeapBytes = ms.HeapAlloc
	st.NumGoroutine = runtime.NumGoroutine()

	if !startedAt.IsZero() {
		st.UptimeSeconds = int64(time.Since(startedAt).Seconds())
	}
	return st
}

// readMemInfo returns used and total bytes using /proc/meminfo.
// If unavailable, returns zeros.
func readMemInfo() (used, total uint64) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, 0
	}
	defer f.Close()
	var memTotal, memAvailable uint64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "MemTotal:") {
			memTotal = parseKiBLine(line)
		} else if strings.HasPrefix(line, "MemAvailable:") {
			memAvailable = parseKiBLine(line)
		}
	}
	if memTotal > 0 {
		total = memTotal
		if memAvailable <= memTotal {
			used = memTotal - memAvailable
		}
		// convert KiB -> bytes
		used *= 1024
		total *= 1024
	}
	return used, total
}

func parseKiBLine(line string) uint64 {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	v, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0
	}
	return v
}
