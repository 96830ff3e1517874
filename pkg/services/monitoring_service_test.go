package services

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	monitor := NewMonitoringService(0)

	router := gin.New()
	router.Use(monitor.LoggingMiddleware())
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/bad", func(c *gin.Context) {
		MarkErrorKind(c, "degenerate_input")
		c.Status(http.StatusUnprocessableEntity)
	})
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/ok", "/ok", "/bad", "/health"} {
		req, _ := http.NewRequest("GET", path, nil)
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	data := monitor.GetDashboardData(24)
	assert.Equal(t, 24, data.PeriodHours)
	assert.Len(t, data.RequestsOverTime, 24)
	assert.Equal(t, 2, data.StatusCodes["2xx"])
	assert.Equal(t, 1, data.StatusCodes["4xx"])
	assert.Equal(t, 1, data.ErrorKinds["degenerate_input"])

	require.Len(t, data.Endpoints, 2)
	assert.Equal(t, "/ok", data.Endpoints[0].Path)
	assert.Equal(t, 2, data.Endpoints[0].Requests)
	assert.Equal(t, 1, data.Endpoints[1].Errors)

	require.Len(t, data.RecentErrors, 1)
	assert.Equal(t, "/bad", data.RecentErrors[0].Path)
}

func TestMonitoringCapacityAndPeriod(t *testing.T) {
	monitor := NewMonitoringService(3)
	now := time.Now()

	monitor.LogRequest(LogEntry{Timestamp: now.Add(-48 * time.Hour), Path: "/old", StatusCode: 200})
	for i := 0; i < 3; i++ {
		monitor.LogRequest(LogEntry{Timestamp: now, Path: "/new", StatusCode: 200})
	}
	assert.Len(t, monitor.logs, 3)

	monitor.RecordRender(RenderEntry{Timestamp: now, Kind: ArtifactHeatmap, Variables: 4, Bytes: 1000, Duration: 10 * time.Millisecond})
	monitor.RecordRender(RenderEntry{Timestamp: now, Kind: ArtifactHeatmap, Variables: 2, Bytes: 3000, Duration: 30 * time.Millisecond})

	data := monitor.GetDashboardData(1)
	require.Len(t, data.Endpoints, 1)
	assert.Equal(t, 3, data.Endpoints[0].Requests)

	require.Len(t, data.Renders, 1)
	assert.Equal(t, 2, data.Renders[0].Count)
	assert.Equal(t, int64(20), data.Renders[0].AvgMS)
	assert.Equal(t, 2000, data.Renders[0].AvgBytes)
	assert.Equal(t, 3.0, data.Renders[0].AvgVariable)
}
