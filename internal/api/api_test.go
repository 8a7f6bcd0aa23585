package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"streamswap-indexer/internal/domain"
	"streamswap-indexer/internal/storage"
	"streamswap-indexer/internal/storage/memory"
)

const (
	poolID  = "0x00000000000000000000000000000000000000a0"
	tokenID = "0x000000000000000000000000000000000000000a"
	userID  = "0x00000000000000000000000000000000000000e1"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	store := memory.NewStore()
	b := storage.NewBatch()
	b.Put(&domain.Pool{ID: poolID, CreatedAtBlockNumber: 10, TokenAddresses: []string{tokenID}})
	b.Put(&domain.Token{ID: tokenID, Symbol: "TKA", Decimals: 18, TotalLiquidity: decimal.NewFromInt(60)})
	b.Put(&domain.PooledToken{ID: tokenID + "-" + poolID, PoolID: poolID, TokenID: tokenID, Reserve: decimal.NewFromInt(60)})
	b.Put(&domain.ContinuousSwap{ID: "0xswap", PoolID: poolID, UserID: userID, TokenInID: tokenID, RateIn: decimal.NewFromInt(1)})
	require.NoError(t, store.Commit(context.Background(), b))
	return NewController(store, zaptest.NewLogger(t)).NewRouter()
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestRouter(t), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestPools(t *testing.T) {
	rec := get(t, newTestRouter(t), "/pools")
	require.Equal(t, http.StatusOK, rec.Code)

	var pools []domain.Pool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pools))
	require.Len(t, pools, 1)
	assert.Equal(t, poolID, pools[0].ID)
}

func TestPool_ChecksumAddressAccepted(t *testing.T) {
	h := newTestRouter(t)
	rec := get(t, h, "/pools/"+strings.ToUpper(poolID[2:]))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, h, "/pools/0x00000000000000000000000000000000000000A0")
	require.Equal(t, http.StatusOK, rec.Code)
	var pool domain.Pool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pool))
	assert.Equal(t, []string{tokenID}, pool.TokenAddresses)
}

func TestPool_Errors(t *testing.T) {
	h := newTestRouter(t)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/pools/not-an-address").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/pools/0x00000000000000000000000000000000000000ff").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/pools/0x00000000000000000000000000000000000000ff/tokens").Code)
}

func TestPoolTokens(t *testing.T) {
	rec := get(t, newTestRouter(t), "/pools/"+poolID+"/tokens")
	require.Equal(t, http.StatusOK, rec.Code)

	var pooled []domain.PooledToken
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pooled))
	require.Len(t, pooled, 1)
	assert.True(t, pooled[0].Reserve.Equal(decimal.NewFromInt(60)))
}

func TestToken(t *testing.T) {
	rec := get(t, newTestRouter(t), "/tokens/"+tokenID)
	require.Equal(t, http.StatusOK, rec.Code)

	var token domain.Token
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &token))
	assert.Equal(t, "TKA", token.Symbol)
	assert.True(t, token.TotalLiquidity.Equal(decimal.NewFromInt(60)))
}

func TestContinuousSwaps_Filters(t *testing.T) {
	h := newTestRouter(t)

	var swaps []domain.ContinuousSwap
	rec := get(t, h, "/continuous-swaps?user="+userID+"&pool="+poolID)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &swaps))
	assert.Len(t, swaps, 1)

	rec = get(t, h, "/continuous-swaps?user=0x00000000000000000000000000000000000000e2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/continuous-swaps?pool=xyz").Code)
}

func TestMetricsRoute(t *testing.T) {
	rec := get(t, newTestRouter(t), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
