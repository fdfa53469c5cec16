package api

import (
	"encoding/json"
	"net/http"
	"time"

	"MacroPull/internal/domain/models"
	domsvc "MacroPull/internal/domain/service"
	icache "MacroPull/internal/service/cache"
	"MacroPull/internal/service/metrics"
	"MacroPull/internal/service/ratelimit"
	applogger "MacroPull/pkg/logger"
)

// StudyHandler serves study snapshot slices over plain net/http.
type StudyHandler struct {
	prov  domsvc.SnapshotProvider
	cache icache.BytesCache
	rl    *ratelimit.Limiter
	l     *applogger.Logger
}

func NewStudyHandler(prov domsvc.SnapshotProvider) *StudyHandler {
	metrics.Register()
	return &StudyHandler{prov: prov, rl: ratelimit.New()}
}

func (h *StudyHandler) SetCache(c icache.BytesCache) { h.cache = c }

// SetLogger injects a structured logger.
func (h *StudyHandler) SetLogger(l *applogger.Logger) { h.l = l }

// serve wraps the shared endpoint plumbing: stage metrics, per-remote
// rate limiting, byte-cache lookup, and JSON writing.
func (h *StudyHandler) serve(endpoint, cacheKey string, ttl time.Duration, fetch func(r *http.Request) (interface{}, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		defer func() {
			metrics.StudyStageLatency.WithLabelValues("api_" + endpoint).Observe(time.Since(start).Seconds())
		}()

		if !h.rl.Allow(r.RemoteAddr+":"+endpoint, 5, 2) {
			if h.l != nil {
				h.l.Warn("study."+endpoint+" rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}

		key := cacheKey + ":" + r.URL.RawQuery
		if h.cache != nil {
			if b, ok, err := h.cache.GetBytes(key); err != nil {
				if h.l != nil {
					h.l.Warn("study."+endpoint+" cache_get_error", applogger.Error(err))
				}
			} else if ok {
				w.Header().Set("Content-Type", "application/json")
				if _, err := w.Write(b); err != nil && h.l != nil {
					h.l.Warn("study."+endpoint+" write_error", applogger.Error(err))
				}
				return
			}
		}

		res, err := fetch(r)
		if err != nil {
			metrics.StudyErrors.WithLabelValues("api_" + endpoint).Inc()
			if h.l != nil {
				h.l.Error("study."+endpoint+" error", applogger.Error(err))
			}
			http.Error(w, err.Error(), statusFor(err))
			return
		}
		b, err := json.Marshal(res)
		if err != nil {
			if h.l != nil {
				h.l.Error("study."+endpoint+" marshal_error", applogger.Error(err))
			}
			http.Error(w, "encode error", http.StatusInternalServerError)
			return
		}
		if h.cache != nil && ttl > 0 {
			if err := h.cache.SetBytes(key, b, ttl); err != nil && h.l != nil {
				h.l.Warn("study."+endpoint+" cache_set_error", applogger.Error(err))
			}
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(b); err != nil && h.l != nil {
			h.l.Warn("study."+endpoint+" write_error", applogger.Error(err))
		}
	}
}

func (h *StudyHandler) Panel() http.HandlerFunc {
	return h.serve("panel", "study:panel", 60*time.Second, func(r *http.Request) (interface{}, error) {
		snap, err := h.prov.Snapshot(r.Context())
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"index":      snap.Index,
			"panel":      snap.Panel,
			"months":     snap.Months,
			"indicators": snap.Indicators,
		}, nil
	})
}

func (h *StudyHandler) Spreads() http.HandlerFunc {
	return h.serve("spreads", "study:spreads", 60*time.Second, func(r *http.Request) (interface{}, error) {
		snap, err := h.prov.Snapshot(r.Context())
		if err != nil {
			return nil, err
		}
		asset := r.URL.Query().Get("asset")
		if asset == "" {
			return snap.Spreads, nil
		}
		for _, s := range snap.Spreads {
			if s.Asset == asset {
				return s, nil
			}
		}
		return nil, &models.DataInsufficientError{Stage: "api", Series: asset}
	})
}

func (h *StudyHandler) Composite() http.HandlerFunc {
	return h.serve("composite", "study:composite", 60*time.Second, func(r *http.Request) (interface{}, error) {
		snap, err := h.prov.Snapshot(r.Context())
		if err != nil {
			return nil, err
		}
		if r.URL.Query().Get("method") == "pca" {
			return map[string]interface{}{"composite": snap.PCAComposite, "pca": snap.PCA}, nil
		}
		return map[string]interface{}{"composite": snap.ZComposite}, nil
	})
}

func (h *StudyHandler) Regressions() http.HandlerFunc {
	return h.serve("regressions", "study:regressions", 60*time.Second, func(r *http.Request) (interface{}, error) {
		snap, err := h.prov.Snapshot(r.Context())
		if err != nil {
			return nil, err
		}
		switch r.URL.Query().Get("sample") {
		case models.SamplePreBreak, models.SamplePostBreak:
			return snap.Subsamples, nil
		case "", models.SampleFull:
			return snap.FullSample, nil
		default:
			return append(append([]models.RegressionResult(nil), snap.FullSample...), snap.Subsamples...), nil
		}
	})
}

func (h *StudyHandler) Rolling() http.HandlerFunc {
	return h.serve("rolling", "study:rolling", 60*time.Second, func(r *http.Request) (interface{}, error) {
		snap, err := h.prov.Snapshot(r.Context())
		if err != nil {
			return nil, err
		}
		asset := r.URL.Query().Get("asset")
		if asset == "" {
			return snap.Rolling, nil
		}
		for _, rr := range snap.Rolling {
			if rr.Asset == asset {
				return rr, nil
			}
		}
		return nil, &models.DataInsufficientError{Stage: "api", Series: asset}
	})
}

func (h *StudyHandler) Regimes() http.HandlerFunc {
	return h.serve("regimes", "study:regimes", 60*time.Second, func(r *http.Request) (interface{}, error) {
		snap, err := h.prov.Snapshot(r.Context())
		if err != nil {
			return nil, err
		}
		return snap.Regimes, nil
	})
}

func (h *StudyHandler) Refresh() http.HandlerFunc {
	return h.serve("refresh", "study:refresh", 0, func(r *http.Request) (interface{}, error) {
		snap, err := h.prov.Refresh(r.Context())
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"computed_at": snap.ComputedAt,
			"months":      snap.Months,
		}, nil
	})
}

// Mux mounts every endpoint on a fresh ServeMux. The ops listener
// serves this mux behind the Prometheus request middleware.
func (h *StudyHandler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/panel", h.Panel())
	mux.Handle("/spreads", h.Spreads())
	mux.Handle("/composite", h.Composite())
	mux.Handle("/regressions", h.Regressions())
	mux.Handle("/rolling", h.Rolling())
	mux.Handle("/regimes", h.Regimes())
	mux.Handle("/refresh", h.Refresh())
	return mux
}

func statusFor(err error) int {
	switch err.(type) {
	case *models.DataInsufficientError:
		return http.StatusUnprocessableEntity
	case *models.InvalidPriceError:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
