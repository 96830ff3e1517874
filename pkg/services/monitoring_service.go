package services

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// DefaultMonitoringCapacity 保持するリクエストログの上限
const DefaultMonitoringCapacity = 5000

// errorKindKey ハンドラがエラー種別をgin.Contextに記録するときのキー
const errorKindKey = "monitoring.error_kind"

// LogEntry 1リクエスト分のログ
type LogEntry struct {
	Timestamp    time.Time     `json:"timestamp"`
	Path         string        `json:"path"`
	Method       string        `json:"method"`
	StatusCode   int           `json:"status_code"`
	ResponseTime time.Duration `json:"response_time_ns"`
	ErrorKind    string        `json:"error_kind,omitempty"`
}

// RenderEntry 1回分の描画の記録
type RenderEntry struct {
	Timestamp time.Time
	Kind      string
	Variables int
	Bytes     int
	Duration  time.Duration
}

// MonitoringService リクエストと描画の記録をメモリ上に保持する
type MonitoringService struct {
	logs     []LogEntry
	renders  []RenderEntry
	capacity int
	now      func() time.Time
	mu       sync.RWMutex
}

// NewMonitoringService capacityが0以下なら既定値を使う
func NewMonitoringService(capacity int) *MonitoringService {
	if capacity <= 0 {
		capacity = DefaultMonitoringCapacity
	}
	return &MonitoringService{
		logs:     make([]LogEntry, 0),
		renders:  make([]RenderEntry, 0),
		capacity: capacity,
		now:      time.Now,
	}
}

// LogRequest リクエストを記録する。上限を超えたら古いものから捨てる
func (s *MonitoringService) LogRequest(entry LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > s.capacity {
		s.logs = s.logs[len(s.logs)-s.capacity:]
	}
}

// RecordRender 描画の所要時間と出力サイズを記録する
func (s *MonitoringService) RecordRender(entry RenderEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renders = append(s.renders, entry)
	if len(s.renders) > s.capacity {
		s.renders = s.renders[len(s.renders)-s.capacity:]
	}
}

// MarkErrorKind ハンドラが返したエラーの種別をログに残す
func MarkErrorKind(c *gin.Context, kind string) {
	c.Set(errorKindKey, kind)
}

// LoggingMiddleware リクエスト情報を記録するGinミドルウェア
func (s *MonitoringService) LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := s.now()

		c.Next()

		// モニタリング自身とヘルスチェックは除外
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/v1/monitoring") || path == "/health" {
			return
		}

		entry := LogEntry{
			Timestamp:    start,
			Path:         path,
			Method:       c.Request.Method,
			StatusCode:   c.Writer.Status(),
			ResponseTime: time.Since(start),
		}
		if kind, ok := c.Get(errorKindKey); ok {
			entry.ErrorKind, _ = kind.(string)
		}
		s.LogRequest(entry)
	}
}

// EndpointStats エンドポイントごとの集計
type EndpointStats struct {
	Path           string `json:"path"`
	Requests       int    `json:"requests"`
	Errors         int    `json:"errors"`
	AvgResponseMS  int64  `json:"avg_response_ms"`
	SlowestRequest int64  `json:"slowest_response_ms"`
}

// RenderStats 描画の種類ごとの集計
type RenderStats struct {
	Kind        string  `json:"kind"`
	Count       int     `json:"count"`
	AvgMS       int64   `json:"avg_ms"`
	AvgBytes    int     `json:"avg_bytes"`
	AvgVariable float64 `json:"avg_variables"`
}

// DashboardData 指定期間の集計結果
type DashboardData struct {
	PeriodHours      int                      `json:"period_hours"`
	RequestsOverTime []map[string]interface{} `json:"requests_over_time"`
	Endpoints        []EndpointStats          `json:"endpoints"`
	StatusCodes      map[string]int           `json:"status_codes"`
	ErrorKinds       map[string]int           `json:"error_kinds"`
	Renders          []RenderStats            `json:"renders"`
	RecentErrors     []LogEntry               `json:"recent_errors"`
}

// GetDashboardData 直近periodHours時間のログを集計する
func (s *MonitoringService) GetDashboardData(periodHours int) DashboardData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// 時間帯の表示はJST。取得できない環境ではUTC
	jst, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		jst = time.UTC
	}
	now := s.now().In(jst)
	since := now.Add(-time.Duration(periodHours) * time.Hour)

	filtered := make([]LogEntry, 0)
	for _, entry := range s.logs {
		if entry.Timestamp.After(since) {
			filtered = append(filtered, entry)
		}
	}

	// 1時間ごとのリクエスト数（古い順）
	overTime := make([]map[string]interface{}, periodHours)
	bucketIndex := make(map[string]int, periodHours)
	for i := 0; i < periodHours; i++ {
		t := now.Add(-time.Duration(periodHours-1-i) * time.Hour)
		bucketIndex[t.Truncate(time.Hour).Format(time.RFC3339)] = i
		overTime[i] = map[string]interface{}{"time": t.Format("15:00"), "requests": 0}
	}
	for _, entry := range filtered {
		key := entry.Timestamp.In(jst).Truncate(time.Hour).Format(time.RFC3339)
		if i, ok := bucketIndex[key]; ok {
			overTime[i]["requests"] = overTime[i]["requests"].(int) + 1
		}
	}

	statusCodes := map[string]int{"2xx": 0, "4xx": 0, "5xx": 0}
	errorKinds := make(map[string]int)
	byPath := make(map[string]*EndpointStats)
	totals := make(map[string]time.Duration)
	for _, entry := range filtered {
		switch {
		case entry.StatusCode >= 500:
			statusCodes["5xx"]++
		case entry.StatusCode >= 400:
			statusCodes["4xx"]++
		case entry.StatusCode >= 200 && entry.StatusCode < 300:
			statusCodes["2xx"]++
		}
		if entry.ErrorKind != "" {
			errorKinds[entry.ErrorKind]++
		}

		st, ok := byPath[entry.Path]
		if !ok {
			st = &EndpointStats{Path: entry.Path}
			byPath[entry.Path] = st
		}
		st.Requests++
		if entry.StatusCode >= 400 {
			st.Errors++
		}
		if ms := entry.ResponseTime.Milliseconds(); ms > st.SlowestRequest {
			st.SlowestRequest = ms
		}
		totals[entry.Path] += entry.ResponseTime
	}
	endpoints := make([]EndpointStats, 0, len(byPath))
	for path, st := range byPath {
		st.AvgResponseMS = totals[path].Milliseconds() / int64(st.Requests)
		endpoints = append(endpoints, *st)
	}
	sort.Slice(endpoints, func(i, j int) bool {
		if endpoints[i].Requests != endpoints[j].Requests {
			return endpoints[i].Requests > endpoints[j].Requests
		}
		return endpoints[i].Path < endpoints[j].Path
	})

	// 直近のエラー（新しい順に最大10件）
	recentErrors := make([]LogEntry, 0)
	for i := len(filtered) - 1; i >= 0 && len(recentErrors) < 10; i-- {
		if filtered[i].StatusCode >= 400 {
			recentErrors = append(recentErrors, filtered[i])
		}
	}

	return DashboardData{
		PeriodHours:      periodHours,
		RequestsOverTime: overTime,
		Endpoints:        endpoints,
		StatusCodes:      statusCodes,
		ErrorKinds:       errorKinds,
		Renders:          s.renderStats(since),
		RecentErrors:     recentErrors,
	}
}

func (s *MonitoringService) renderStats(since time.Time) []RenderStats {
	type acc struct {
		count     int
		duration  time.Duration
		bytes     int
		variables int
	}
	byKind := make(map[string]*acc)
	for _, r := range s.renders {
		if !r.Timestamp.After(since) {
			continue
		}
		a, ok := byKind[r.Kind]
		if !ok {
			a = &acc{}
			byKind[r.Kind] = a
		}
		a.count++
		a.duration += r.Duration
		a.bytes += r.Bytes
		a.variables += r.Variables
	}
	out := make([]RenderStats, 0, len(byKind))
	for kind, a := range byKind {
		out = append(out, RenderStats{
			Kind:        kind,
			Count:       a.count,
			AvgMS:       a.duration.Milliseconds() / int64(a.count),
			AvgBytes:    a.bytes / a.count,
			AvgVariable: float64(a.variables) / float64(a.count),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}
