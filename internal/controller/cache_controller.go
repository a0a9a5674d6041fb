package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cassiomorais/offlinepay/internal/cache"
)

type CacheController struct {
	cache *cache.Cache
}

func NewCacheController(c *cache.Cache) *CacheController {
	return &CacheController{cache: c}
}

func (c *CacheController) Get(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	value, ok := c.cache.Get(r.Context(), key)
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "cache entry not found or expired", Code: "cache_miss"})
		return
	}
	writeJSON(w, http.StatusOK, CacheEntryResponse{Key: key, Value: value})
}

func (c *CacheController) Remove(w http.ResponseWriter, r *http.Request) {
	if err := c.cache.Remove(r.Context(), chi.URLParam(r, "key")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *CacheController) Clear(w http.ResponseWriter, r *http.Request) {
	if err := c.cache.Clear(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *CacheController) Sweep(w http.ResponseWriter, r *http.Request) {
	removed, err := c.cache.SweepExpired(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SweepResponse{Removed: removed})
}
