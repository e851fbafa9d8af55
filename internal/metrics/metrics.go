package metrics

import (
	"sort"
	"sync"
	"time"
)

const maxSamples = 1000

type Metrics struct {
	mutex          sync.RWMutex
	requests       map[string]int64
	responseTimes  map[string][]time.Duration
	statusCodes    map[string]map[int]int64
	configsServed  int64
	configBytes    int64
	writeFailures  int64
	reloads        int64
	reloadFailures int64
	lastReload     time.Time
	startTime      time.Time
}

type Snapshot struct {
	TotalRequests  int64                   `json:"total_requests"`
	Uptime         time.Duration           `json:"uptime"`
	Routes         map[string]RouteMetrics `json:"routes"`
	ConfigsServed  int64                   `json:"configs_served"`
	ConfigBytes    int64                   `json:"config_bytes"`
	WriteFailures  int64                   `json:"write_failures"`
	Reloads        int64                   `json:"reloads"`
	ReloadFailures int64                   `json:"reload_failures"`
	LastReload     *time.Time              `json:"last_reload,omitempty"`
}

type RouteMetrics struct {
	Requests    int64         `json:"requests"`
	AvgResponse time.Duration `json:"avg_response"`
	P50Response time.Duration `json:"p50_response"`
	P95Response time.Duration `json:"p95_response"`
	P99Response time.Duration `json:"p99_response"`
	StatusCodes map[int]int64 `json:"status_codes"`
}

func (m *Metrics) RecordRequest(route string, duration time.Duration, statusCode int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.requests[route]++

	m.responseTimes[route] = append(m.responseTimes[route], duration)
	if len(m.responseTimes[route]) > maxSamples {
		m.responseTimes[route] = m.responseTimes[route][1:]
	}

	if m.statusCodes[route] == nil {
		m.statusCodes[route] = make(map[int]int64)
	}
	m.statusCodes[route][statusCode]++
}

func (m *Metrics) RecordConfigServed(bytes int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.configsServed++
	m.configBytes += bytes
}

func (m *Metrics) RecordWriteFailure() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.writeFailures++
}

func (m *Metrics) RecordReload(at time.Time, failed bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if failed {
		m.reloadFailures++
		return
	}
	m.reloads++
	m.lastReload = at
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:         time.Since(m.startTime),
		Routes:         make(map[string]RouteMetrics),
		ConfigsServed:  m.configsServed,
		ConfigBytes:    m.configBytes,
		WriteFailures:  m.writeFailures,
		Reloads:        m.reloads,
		ReloadFailures: m.reloadFailures,
	}
	if !m.lastReload.IsZero() {
		last := m.lastReload
		snap.LastReload = &last
	}

	for route, count := range m.requests {
		snap.TotalRequests += count

		codes := make(map[int]int64, len(m.statusCodes[route]))
		for code, n := range m.statusCodes[route] {
			codes[code] = n
		}

		rm := RouteMetrics{
			Requests:    count,
			StatusCodes: codes,
		}

		durations := m.responseTimes[route]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			rm.AvgResponse = average(sorted)
			rm.P50Response = percentile(sorted, 0.50)
			rm.P95Response = percentile(sorted, 0.95)
			rm.P99Response = percentile(sorted, 0.99)
		}

		snap.Routes[route] = rm
	}

	return snap
}

func NewMetrics() *Metrics {
	return &Metrics{
		requests:      make(map[string]int64),
		responseTimes: make(map[string][]time.Duration),
		statusCodes:   make(map[string]map[int]int64),
		startTime:     time.Now(),
	}
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
