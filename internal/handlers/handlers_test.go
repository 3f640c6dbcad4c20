package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohai/storefront/internal/assistant"
	"github.com/memohai/storefront/internal/catalog"
	"github.com/memohai/storefront/internal/config"
	"github.com/memohai/storefront/internal/llm"
	"github.com/memohai/storefront/internal/metrics"
)

type scriptedGenerator struct {
	reply string
	err   error
}

func (g scriptedGenerator) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	return g.reply, g.err
}

type fixture struct {
	echo  *echo.Echo
	store *catalog.SQLiteStore
	cache *catalog.Cache
	reg   *prometheus.Registry
}

func newFixture(t *testing.T, gen llm.Generator) *fixture {
	t.Helper()
	ctx := context.Background()
	store, err := catalog.OpenSQLiteStore(ctx, nil, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Upsert(ctx, []catalog.Product{
		{ID: 1, Name: "Mouse Wireless", Category: "elektronik", PriceCents: 15000000, Currency: "IDR", Stock: 3},
		{ID: 2, Name: "Keyboard Mekanik", Category: "elektronik", PriceCents: 65000000, Currency: "IDR", Stock: 1},
		{ID: 5, Name: "Kaos Oversize Hitam", Category: "fashion", PriceCents: 9900000, Currency: "IDR", Stock: 9},
	}))

	reg := prometheus.NewRegistry()
	m := metrics.MustNew(reg)
	cache := catalog.NewCache(nil, store, 4, time.Minute, catalog.WithLookupObserver(m.ObserveCacheLookup))
	svc := assistant.NewService(nil, cache, store, gen, m, config.AssistantConfig{
		MaxHistoryTurns: 4,
		FallbackMessage: "Maaf, coba lagi.",
	})

	e := echo.New()
	for _, h := range []interface{ Register(*echo.Echo) }{
		NewPingHandler(),
		NewAssistantHandler(svc),
		NewProductsHandler(store, cache),
		NewMetricsHandler(reg),
	} {
		h.Register(e)
	}
	return &fixture{echo: e, store: store, cache: cache, reg: reg}
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	return rec
}

func TestPing(t *testing.T) {
	f := newFixture(t, scriptedGenerator{})

	rec := f.do(http.MethodGet, "/ping", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body PingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.NotEmpty(t, body.Version)

	assert.Equal(t, http.StatusOK, f.do(http.MethodHead, "/health", "").Code)
}

func TestChatEndpoint(t *testing.T) {
	f := newFixture(t, scriptedGenerator{reply: "Pilih **Keyboard Mekanik** (ID: 2) atau mouse wireless."})

	rec := f.do(http.MethodPost, "/assistant/chat", `{"session_id":"abc","message":"butuh keyboard"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp assistant.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.TurnID)
	assert.Empty(t, resp.Error)
	assert.Equal(t, "Pilih **Keyboard Mekanik** atau mouse wireless.", resp.Content)
	// mouse is tagged first, which guards keyboard earlier on the line; fallback adds it
	require.Len(t, resp.Products, 2)
	assert.Equal(t, int64(1), resp.Products[0].ID)
	assert.Equal(t, int64(2), resp.Products[1].ID)
	assert.NotContains(t, rec.Body.String(), "[ID:")
}

func TestChatEndpointValidation(t *testing.T) {
	f := newFixture(t, scriptedGenerator{reply: "ok"})

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/assistant/chat", `{"message":"  "}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/assistant/chat", `{"message":`).Code)
	long := `{"message":"` + strings.Repeat("a", maxMessageRunes+1) + `"}`
	assert.Equal(t, http.StatusRequestEntityTooLarge, f.do(http.MethodPost, "/assistant/chat", long).Code)
}

func TestChatEndpointGeneratorDown(t *testing.T) {
	f := newFixture(t, scriptedGenerator{err: errors.New("boom")})

	rec := f.do(http.MethodPost, "/assistant/chat", `{"message":"halo"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp assistant.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, assistant.ErrorGenerationFailed, resp.Error)
	assert.Equal(t, "Maaf, coba lagi.", resp.Content)
	assert.Contains(t, rec.Body.String(), `"products":[]`)
}

func TestResolveEndpoint(t *testing.T) {
	f := newFixture(t, scriptedGenerator{})

	rec := f.do(http.MethodPost, "/assistant/resolve", `{"text":"Kaos Oversize Hitam [ID:77] cocok"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ResolveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Kaos Oversize Hitam cocok", resp.DisplayText)
	assert.Equal(t, []int64{5}, resp.ReferencedIDs)

	rec = f.do(http.MethodPost, "/assistant/resolve", `{"text":"Kaos Oversize Hitam","category":"elektronik"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []int64{}, resp.ReferencedIDs)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/assistant/resolve", `{"text":""}`).Code)
}

func TestProductsEndpoints(t *testing.T) {
	f := newFixture(t, scriptedGenerator{})

	rec := f.do(http.MethodGet, "/products?category=elektronik", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list ProductListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Items, 2)
	assert.Equal(t, "Mouse Wireless", list.Items[0].Name)

	rec = f.do(http.MethodGet, "/products/5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var product catalog.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &product))
	assert.Equal(t, "Kaos Oversize Hitam", product.Name)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/products/404", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/products/abc", "").Code)
}

func TestInvalidateEndpointDropsCache(t *testing.T) {
	f := newFixture(t, scriptedGenerator{})
	ctx := context.Background()

	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/products", "").Code)
	require.Equal(t, 1, f.cache.Len())

	require.NoError(t, f.store.Upsert(ctx, []catalog.Product{{ID: 9, Name: "Topi Rimba", Currency: "IDR"}}))
	rec := f.do(http.MethodPost, "/products/cache/invalidate", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, f.cache.Len())

	rec = f.do(http.MethodGet, "/products", "")
	var list ProductListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Items, 4)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, scriptedGenerator{reply: "Mouse Wireless"})

	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/assistant/chat", `{"message":"halo"}`).Code)

	rec := f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `storefront_assistant_turns_total{outcome="ok"} 1`)
	assert.Contains(t, body, "storefront_reference_resolutions_total 1")
	assert.Contains(t, body, `storefront_catalog_cache_lookups_total{result="miss"} 1`)
}
