package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spektr-org/quanta/computations"
	"github.com/spektr-org/quanta/engine"
	"github.com/spektr-org/quanta/quantity"
)

func do(t *testing.T, e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeQuantity(t *testing.T, rec *httptest.ResponseRecorder) *quantity.Quantity {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	q := new(quantity.Quantity)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), q))
	return q
}

func testReporter(t *testing.T) *engine.Reporter {
	t.Helper()
	r := engine.New(engine.WithRenames(nil))
	b := quantity.NewBuilder("technology")
	b.Set(5, "coal").Set(3, "gas").Set(2, "wind")
	out, err := b.Build()
	require.NoError(t, err)
	require.NoError(t, r.AddQuantity("out", out))
	require.NoError(t, r.AddTable("cat_tec", computations.NewTable([]string{"technology", "category"},
		[]string{"coal", "fossil"}, []string{"gas", "fossil"}, []string{"wind", "renewable"})))
	require.NoError(t, r.AddStep(engine.Step{Key: "by_cat", Op: "broadcast_map", Inputs: []string{"out", "cat_tec"}}))
	return r
}

func TestPostAdd(t *testing.T) {
	e := NewServer(NewHandler(nil, zap.NewNop()))
	body := `{
		"a": {"dims": ["t"], "data": [{"coords": ["x"], "value": 1}, {"coords": ["both"], "value": 2}]},
		"b": {"dims": ["t"], "data": [{"coords": ["both"], "value": 5}]},
		"fill_value": 10
	}`
	q := decodeQuantity(t, do(t, e, http.MethodPost, "/api/add", body))

	v, _ := q.At("x")
	assert.Equal(t, 11.0, v)
	v, _ = q.At("both")
	assert.Equal(t, 7.0, v)
}

func TestPostAddValidation(t *testing.T) {
	e := NewServer(NewHandler(nil, zap.NewNop()))

	rec := do(t, e, http.MethodPost, "/api/add", `{"a": {"dims": [], "data": []}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, http.MethodPost, "/api/add", `{"a": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostMap(t *testing.T) {
	e := NewServer(NewHandler(nil, zap.NewNop()))

	q := decodeQuantity(t, do(t, e, http.MethodPost, "/api/map",
		`{"table": {"columns": ["technology", "category"], "rows": [["coal", "fossil"], ["coal", "fossil"]]}}`))
	assert.Equal(t, []string{"technology", "category"}, q.Dims())
	assert.Equal(t, 1, q.Len())

	q = decodeQuantity(t, do(t, e, http.MethodPost, "/api/map",
		`{"rename_dims": true, "table": {"columns": ["technology", "category"], "rows": [["coal", "fossil"]]}}`))
	assert.Equal(t, []string{"t", "category"}, q.Dims())

	rec := do(t, e, http.MethodPost, "/api/map", `{"table": {"columns": ["a", "b", "c"], "rows": []}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostBroadcast(t *testing.T) {
	e := NewServer(NewHandler(nil, zap.NewNop()))
	body := `{
		"quantity": {"dims": ["technology"], "data": [
			{"coords": ["coal"], "value": 5}, {"coords": ["gas"], "value": 3}, {"coords": ["wind"], "value": 2}]},
		"table": {"columns": ["technology", "category"],
			"rows": [["coal", "fossil"], ["gas", "fossil"], ["wind", "renewable"]]},
		"rename": {"category": "technology"}
	}`
	q := decodeQuantity(t, do(t, e, http.MethodPost, "/api/broadcast", body))

	assert.Equal(t, []string{"technology"}, q.Dims())
	v, _ := q.At("fossil")
	assert.Equal(t, 8.0, v)

	rec := do(t, e, http.MethodPost, "/api/broadcast", `{"quantity": {"dims": [], "data": []}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportRoutes(t *testing.T) {
	h := NewHandler(nil, zap.NewNop())
	e := NewServer(h)

	rec := do(t, e, http.MethodGet, "/api/report", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	h.SetReporter(testReporter(t))

	rec = do(t, e, http.MethodGet, "/api/report", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"keys": ["by_cat", "cat_tec", "out"]}`, rec.Body.String())

	q := decodeQuantity(t, do(t, e, http.MethodGet, "/api/report/by_cat", ""))
	assert.Equal(t, "by_cat", q.Name())
	v, _ := q.At("renewable")
	assert.Equal(t, 2.0, v)

	rec = do(t, e, http.MethodGet, "/api/report/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, e, http.MethodGet, "/api/report/by_cat?format=describe", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "'by_cat':\n- broadcast_map(out, cat_tec)"))

	rec = do(t, e, http.MethodGet, "/api/report/out?format=table&sort=value_desc&limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Data  engine.TableData `json:"data"`
		Total int              `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, [][]string{{"coal", "5"}, {"gas", "3"}}, page.Data.Rows)

	rec = do(t, e, http.MethodGet, "/api/report/out?format=xml", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
