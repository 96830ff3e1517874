package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	config "stats-lab-api/configs"
	"stats-lab-api/pkg/models"
	"stats-lab-api/pkg/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPresets = `
version: "1"
presets:
  fertility_top4:
    cell_size: 0.5
    colormap: Spectral
    top_k:
      target: Fertility
      count: 4
`

func testConfig() *config.Config {
	return &config.Config{
		Port:                "8080",
		Environment:         "test",
		AdminUsername:       "admin",
		AdminPassword:       "secret-password",
		MaxUploadMB:         1,
		ParallelThreshold:   16,
		SyntheticSampleSize: 100,
		Render: config.RenderConfig{
			DPI:             100,
			DefaultCellSize: 0.5,
			DefaultColorMap: "seismic",
			HistogramBins:   10,
		},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	presets, err := config.ParseRenderPresets([]byte(testPresets))
	require.NoError(t, err)
	return SetupRouter(cfg, presets)
}

func swissLikeRequest() models.DatasetRequest {
	return models.DatasetRequest{Columns: []models.ColumnPayload{
		{Name: "Fertility", Values: []float64{1, 2, 3, 4, 5, 6, 7, 8}},
		{Name: "Agriculture", Values: []float64{1, 8, 2, 7, 3, 6, 4, 5}},
		{Name: "Examination", Values: []float64{3, 6, 9, 12, 15, 18, 21, 24}},
		{Name: "Education", Values: []float64{-1, -2, -3, -4, -5, -6, -8, -7}},
		{Name: "Catholic", Values: []float64{2, 1, 4, 3, 6, 5, 8, 7}},
		{Name: "Infant.Mortality", Values: []float64{5, 3, 8, 1, 7, 2, 6, 4}},
	}}
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest("POST", path, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func get(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest("GET", path, nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
	return resp
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(t, testConfig())

	w := get(t, router, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "status")
	assert.Contains(t, w.Body.String(), "seismic")
}

func TestCorrelationMatrix(t *testing.T) {
	router := newTestRouter(t, testConfig())

	w := postJSON(t, router, "/api/v1/correlation/matrix", swissLikeRequest())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.CorrelationMatrixResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 8, resp.SampleSize)
	require.Len(t, resp.Matrix, 6)
	for i := range resp.Matrix {
		assert.Equal(t, 1.0, resp.Matrix[i][i])
		for j := range resp.Matrix {
			assert.Equal(t, resp.Matrix[i][j], resp.Matrix[j][i])
		}
	}
	assert.Len(t, resp.Pairs, 15)
}

func TestCorrelationMatrixWithTarget(t *testing.T) {
	router := newTestRouter(t, testConfig())

	w := postJSON(t, router, "/api/v1/correlation/matrix?target=Fertility&top_k=4", swissLikeRequest())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.CorrelationMatrixResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"Fertility", "Examination", "Education", "Catholic"}, resp.Variables)
	assert.Equal(t, "Fertility", resp.Target)

	// top_kを省略すると全変数を相関の強い順に並べる
	w = postJSON(t, router, "/api/v1/correlation/matrix?target=Fertility", swissLikeRequest())
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Variables, 6)
	assert.Equal(t, "Infant.Mortality", resp.Variables[5])
}

func TestCorrelationMatrixSingleColumn(t *testing.T) {
	router := newTestRouter(t, testConfig())

	body := models.DatasetRequest{Columns: []models.ColumnPayload{{Name: "a", Values: []float64{1, 2, 3}}}}
	w := postJSON(t, router, "/api/v1/correlation/matrix", body)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.CorrelationMatrixResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, [][]float64{{1}}, resp.Matrix)
	assert.Empty(t, resp.Pairs)
	assert.NotEmpty(t, resp.Message)
}

func TestCorrelationMatrixDegenerate(t *testing.T) {
	router := newTestRouter(t, testConfig())

	body := models.DatasetRequest{Columns: []models.ColumnPayload{
		{Name: "a", Values: []float64{1, 2, 3}},
		{Name: "flat", Values: []float64{2, 2, 2}},
	}}
	w := postJSON(t, router, "/api/v1/correlation/matrix", body)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "degenerate_input", resp.Kind)
	assert.Contains(t, resp.Error, "flat")
}

func TestCorrelationMatrixInvalidDataset(t *testing.T) {
	router := newTestRouter(t, testConfig())

	body := models.DatasetRequest{Columns: []models.ColumnPayload{
		{Name: "a", Values: []float64{1, 2, 3}},
		{Name: "b", Values: []float64{1, 2}},
	}}
	w := postJSON(t, router, "/api/v1/correlation/matrix", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_dataset", decodeError(t, w).Kind)

	req, _ := http.NewRequest("POST", "/api/v1/correlation/matrix", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", decodeError(t, rec).Kind)
}

func TestTopK(t *testing.T) {
	router := newTestRouter(t, testConfig())

	w := postJSON(t, router, "/api/v1/correlation/top-k?target=Fertility&count=4", swissLikeRequest())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp models.TopKResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"Fertility", "Examination", "Education", "Catholic"}, resp.Selected)
	assert.Len(t, resp.Matrix, 4)

	w = postJSON(t, router, "/api/v1/correlation/top-k?target=Unknown&count=4", swissLikeRequest())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_selection", decodeError(t, w).Kind)

	w = postJSON(t, router, "/api/v1/correlation/top-k?target=Fertility", swissLikeRequest())
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(t, router, "/api/v1/correlation/top-k?target=Fertility&count=abc", swissLikeRequest())
	assert.Equal(t, "bad_request", decodeError(t, w).Kind)
}

func TestSyntheticAndNonLinear(t *testing.T) {
	router := newTestRouter(t, testConfig())

	w := get(t, router, "/api/v1/correlation/synthetic?r=0.6&seed=7&n=50")
	require.Equal(t, http.StatusOK, w.Code)
	var first models.SyntheticPairResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	assert.Equal(t, uint64(7), first.Seed)
	assert.Len(t, first.X, 50)

	w = get(t, router, "/api/v1/correlation/synthetic?r=0.6&seed=7&n=50")
	var second models.SyntheticPairResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.Equal(t, first.Y, second.Y)

	w = get(t, router, "/api/v1/correlation/synthetic?r=2")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_parameter", decodeError(t, w).Kind)

	w = get(t, router, "/api/v1/correlation/synthetic")
	assert.Equal(t, "bad_request", decodeError(t, w).Kind)

	w = get(t, router, "/api/v1/correlation/nonlinear")
	require.Equal(t, http.StatusOK, w.Code)
	var example models.NonLinearExample
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &example))
	assert.Len(t, example.X, 9)
	assert.InDelta(t, 0, example.Correlation, 1e-12)
}

func TestDescribeJSONAndUpload(t *testing.T) {
	router := newTestRouter(t, testConfig())

	w := postJSON(t, router, "/api/v1/statistics/describe?bins=4", swissLikeRequest())
	require.Equal(t, http.StatusOK, w.Code)
	var resp models.DescribeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 8, resp.Rows)
	require.Len(t, resp.Columns, 6)
	assert.Len(t, resp.Columns[0].Histogram, 4)

	csvData := ",Fertility,Agriculture\nCourtelary,80.2,17\nDelemont,83.1,45.1\nFranches-Mnt,92.5,39.7\n"
	w = postFile(t, router, "/api/v1/statistics/describe", "swiss.csv", csvData, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Columns, 2)
	assert.Equal(t, "Fertility", resp.Columns[0].Name)

	w = postFile(t, router, "/api/v1/statistics/describe", "swiss.txt", csvData, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_dataset", decodeError(t, w).Kind)
}

func postFile(t *testing.T, router *gin.Engine, path, fileName, content string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest("POST", path, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestImpurity(t *testing.T) {
	router := newTestRouter(t, testConfig())

	w := get(t, router, "/api/v1/statistics/impurity?points=11")
	require.Equal(t, http.StatusOK, w.Code)
	var curves models.ImpurityCurves
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &curves))
	assert.Len(t, curves.Gini, 11)
	assert.InDelta(t, 0.5, curves.Gini[5], 1e-9)

	w = get(t, router, "/api/v1/statistics/impurity?points=1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVisualizationPairwise(t *testing.T) {
	router := newTestRouter(t, testConfig())

	w := postJSON(t, router, "/api/v1/visualization/pairwise?target=Fertility&top_k=3", swissLikeRequest())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "Fertility,Examination,Education", w.Header().Get("X-Variables"))
	assert.NotEmpty(t, w.Header().Get("X-Artifact-ID"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	w = postJSON(t, router, "/api/v1/visualization/pairwise?preset=fertility_top4", swissLikeRequest())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Fertility,Examination,Education,Catholic", w.Header().Get("X-Variables"))

	csvData := "a,b,c\n1,2,9\n2,1,7\n3,5,8\n4,3,1\n"
	w = postFile(t, router, "/api/v1/visualization/pairwise", "data.csv", csvData, map[string]string{"cmap": "bwr"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "a,b,c", w.Header().Get("X-Variables"))
}

func TestVisualizationPairwiseErrors(t *testing.T) {
	router := newTestRouter(t, testConfig())

	single := models.DatasetRequest{Columns: []models.ColumnPayload{{Name: "a", Values: []float64{1, 2, 3}}}}
	w := postJSON(t, router, "/api/v1/visualization/pairwise", single)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "insufficient_variables", decodeError(t, w).Kind)

	w = postJSON(t, router, "/api/v1/visualization/pairwise?cmap=viridis", swissLikeRequest())
	assert.Equal(t, "invalid_render_option", decodeError(t, w).Kind)

	w = postJSON(t, router, "/api/v1/visualization/pairwise?preset=unknown", swissLikeRequest())
	assert.Equal(t, "bad_request", decodeError(t, w).Kind)
}

func TestVisualizationOtherImages(t *testing.T) {
	router := newTestRouter(t, testConfig())

	w := postJSON(t, router, "/api/v1/visualization/heatmap?cmap=coolwarm", swissLikeRequest())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, services.ArtifactHeatmap, w.Header().Get("X-Artifact-Kind"))

	w = get(t, router, "/api/v1/visualization/synthetic?r=-0.4&seed=3")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "500x500", w.Header().Get("X-Image-Size"))

	w = get(t, router, "/api/v1/visualization/impurity")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1000x400", w.Header().Get("X-Image-Size"))

	w = get(t, router, "/api/v1/visualization/presets")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "fertility_top4")
}

func TestUploadLimit(t *testing.T) {
	router := newTestRouter(t, testConfig())

	values := make([]float64, 200000)
	for i := range values {
		values[i] = float64(i) + 0.123456
	}
	body := models.DatasetRequest{Columns: []models.ColumnPayload{{Name: "big", Values: values}}}
	w := postJSON(t, router, "/api/v1/correlation/matrix", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "payload_too_large", decodeError(t, w).Kind)
}

func TestAPIKeyAuth(t *testing.T) {
	cfg := testConfig()
	cfg.APIKey = "test-key"
	router := newTestRouter(t, cfg)

	w := get(t, router, "/api/v1/correlation/nonlinear")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req, _ := http.NewRequest("GET", "/api/v1/correlation/nonlinear", nil)
	req.Header.Set("X-API-KEY", "test-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// ヘルスチェックは認証不要
	assert.Equal(t, http.StatusOK, get(t, router, "/health").Code)
}

func TestMaintenanceMode(t *testing.T) {
	router := newTestRouter(t, testConfig())
	t.Cleanup(func() { isMaintenanceMode.Store(false) })

	creds := AdminCredentials{Username: "admin", Password: "wrong"}
	w := postJSON(t, router, "/api/v1/admin/maintenance/start", creds)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	creds.Password = "secret-password"
	w = postJSON(t, router, "/api/v1/admin/maintenance/start", creds)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusServiceUnavailable, get(t, router, "/health").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, router, "/api/v1/correlation/nonlinear").Code)
	assert.Equal(t, http.StatusOK, get(t, router, "/api/v1/admin/health-status").Code)

	w = postJSON(t, router, "/api/v1/admin/maintenance/stop", creds)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusOK, get(t, router, "/api/v1/correlation/nonlinear").Code)
}

func TestMonitoringLogs(t *testing.T) {
	router := newTestRouter(t, testConfig())

	get(t, router, "/api/v1/correlation/nonlinear")
	postJSON(t, router, "/api/v1/visualization/pairwise", swissLikeRequest())
	get(t, router, "/api/v1/correlation/synthetic?r=5")

	w := get(t, router, "/api/v1/monitoring/logs?period=1h")
	require.Equal(t, http.StatusOK, w.Code)

	var data services.DashboardData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &data))
	assert.Equal(t, 1, data.PeriodHours)
	assert.Equal(t, 2, data.StatusCodes["2xx"])
	assert.Equal(t, 1, data.StatusCodes["4xx"])
	assert.Equal(t, 1, data.ErrorKinds["invalid_parameter"])
	require.Len(t, data.Renders, 1)
	assert.Equal(t, services.ArtifactPairwise, data.Renders[0].Kind)
}

func TestCorrelationMatrixLargeMagnitude(t *testing.T) {
	router := newTestRouter(t, testConfig())

	req := models.DatasetRequest{Columns: []models.ColumnPayload{
		{Name: "a", Values: []float64{1e200, 2e200, 3e200}},
		{Name: "b", Values: []float64{1, 3, 2}},
	}}
	w := postJSON(t, router, "/api/v1/correlation/matrix", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.CorrelationMatrixResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Matrix, 2)
	assert.InDelta(t, 0.5, resp.Matrix[0][1], 1e-12)
}

func TestRequestLimits(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSampleSize = 500
	cfg.MaxImpurityPoints = 1000
	cfg.Render.MaxHistogramBins = 50
	cfg.Render.MaxVariables = 3
	router := newTestRouter(t, cfg)

	testCases := []struct {
		name string
		path string
		kind string
	}{
		{"疑似データのn", "/api/v1/correlation/synthetic?r=0.5&n=501", "invalid_parameter"},
		{"疑似データ画像のn", "/api/v1/visualization/synthetic?r=0.5&n=3000000", "invalid_parameter"},
		{"不純度のpoints", "/api/v1/statistics/impurity?points=1001", "invalid_parameter"},
		{"不純度画像のpoints", "/api/v1/visualization/impurity?points=3000000", "invalid_parameter"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := get(t, router, tc.path)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, tc.kind, decodeError(t, w).Kind)
		})
	}

	// 上限ちょうどは受け付ける
	w := get(t, router, "/api/v1/correlation/synthetic?r=0.5&n=500")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = get(t, router, "/api/v1/statistics/impurity?points=1000")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	t.Run("記述統計のbins", func(t *testing.T) {
		w := postJSON(t, router, "/api/v1/statistics/describe?bins=5000000", swissLikeRequest())
		require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		assert.Equal(t, "invalid_parameter", decodeError(t, w).Kind)

		w = postJSON(t, router, "/api/v1/statistics/describe?bins=50", swissLikeRequest())
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("散布図行列のbins", func(t *testing.T) {
		w := postJSON(t, router, "/api/v1/visualization/pairwise?bins=51&target=Fertility&top_k=3", swissLikeRequest())
		require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		assert.Equal(t, "invalid_render_option", decodeError(t, w).Kind)
	})

	t.Run("描画する変数の数", func(t *testing.T) {
		for _, path := range []string{"/api/v1/visualization/pairwise", "/api/v1/visualization/heatmap"} {
			w := postJSON(t, router, path, swissLikeRequest())
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, "invalid_render_option", decodeError(t, w).Kind)

			w = postJSON(t, router, path+"?target=Fertility&top_k=3", swissLikeRequest())
			assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
		}
	})
}
