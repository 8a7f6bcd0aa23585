// Package api serves the materialized StreamSwap state over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"streamswap-indexer/internal/domain"
	"streamswap-indexer/internal/idhash"
	"streamswap-indexer/internal/observability"
	"streamswap-indexer/internal/storage"
)

// Store is what the API reads from.
type Store interface {
	storage.EntityStore
	storage.QueryStore
}

// Controller holds the handlers of the query API.
type Controller struct {
	store  Store
	logger *zap.Logger
}

// NewController creates a controller over store.
func NewController(store Store, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{store: store, logger: logger}
}

// NewRouter returns a router with every route of the API.
func (c *Controller) NewRouter() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", c.HandleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", observability.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/pools", c.HandlePools).Methods(http.MethodGet)
	r.HandleFunc("/pools/{id}", c.HandlePool).Methods(http.MethodGet)
	r.HandleFunc("/pools/{id}/tokens", c.HandlePoolTokens).Methods(http.MethodGet)
	r.HandleFunc("/tokens/{id}", c.HandleToken).Methods(http.MethodGet)
	r.HandleFunc("/continuous-swaps", c.HandleContinuousSwaps).Methods(http.MethodGet)

	return r
}

// HandleHealth reports liveness.
func (c *Controller) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandlePools lists every pool.
func (c *Controller) HandlePools(w http.ResponseWriter, r *http.Request) {
	pools, err := c.store.ListPools(r.Context())
	if err != nil {
		c.internalError(w, "list pools", err)
		return
	}
	if pools == nil {
		pools = []*domain.Pool{}
	}
	writeJSON(w, http.StatusOK, pools)
}

// HandlePool returns one pool.
func (c *Controller) HandlePool(w http.ResponseWriter, r *http.Request) {
	id, ok := addressParam(w, r)
	if !ok {
		return
	}
	pool, err := storage.Get[*domain.Pool](r.Context(), c.store, domain.KindPool, id)
	if c.lookupFailed(w, "pool", err) {
		return
	}
	writeJSON(w, http.StatusOK, pool)
}

// HandlePoolTokens returns the token ledgers of one pool.
func (c *Controller) HandlePoolTokens(w http.ResponseWriter, r *http.Request) {
	id, ok := addressParam(w, r)
	if !ok {
		return
	}
	if _, err := storage.Get[*domain.Pool](r.Context(), c.store, domain.KindPool, id); c.lookupFailed(w, "pool", err) {
		return
	}
	pooled, err := c.store.ListPooledTokens(r.Context(), id)
	if err != nil {
		c.internalError(w, "list pooled tokens", err)
		return
	}
	if pooled == nil {
		pooled = []*domain.PooledToken{}
	}
	writeJSON(w, http.StatusOK, pooled)
}

// HandleToken returns one token.
func (c *Controller) HandleToken(w http.ResponseWriter, r *http.Request) {
	id, ok := addressParam(w, r)
	if !ok {
		return
	}
	token, err := storage.Get[*domain.Token](r.Context(), c.store, domain.KindToken, id)
	if c.lookupFailed(w, "token", err) {
		return
	}
	writeJSON(w, http.StatusOK, token)
}

// HandleContinuousSwaps lists active streaming positions.
// Query params: ?user=<address>&pool=<address>, both optional.
func (c *Controller) HandleContinuousSwaps(w http.ResponseWriter, r *http.Request) {
	var filter storage.ContinuousSwapFilter
	q := r.URL.Query()
	for name, dst := range map[string]*string{"user": &filter.UserID, "pool": &filter.PoolID} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		if !common.IsHexAddress(v) {
			writeError(w, http.StatusBadRequest, name+" must be an address")
			return
		}
		*dst = idhash.AddressID(common.HexToAddress(v))
	}

	swaps, err := c.store.ListContinuousSwaps(r.Context(), filter)
	if err != nil {
		c.internalError(w, "list continuous swaps", err)
		return
	}
	if swaps == nil {
		swaps = []*domain.ContinuousSwap{}
	}
	writeJSON(w, http.StatusOK, swaps)
}

// addressParam reads the {id} path variable as an address entity ID.
func addressParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := mux.Vars(r)["id"]
	if !common.IsHexAddress(id) {
		writeError(w, http.StatusBadRequest, "id must be an address")
		return "", false
	}
	return idhash.AddressID(common.HexToAddress(id)), true
}

// lookupFailed writes the error response for a failed entity lookup.
func (c *Controller) lookupFailed(w http.ResponseWriter, what string, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, what+" not found")
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		c.internalError(w, "load "+what, err)
	}
	return true
}

func (c *Controller) internalError(w http.ResponseWriter, op string, err error) {
	c.logger.Error("query failed", zap.String("op", op), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
