// Package webapi provides http api for spam checks, training and model management.
package webapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/didip/tollbooth/v8"
	"github.com/didip/tollbooth/v8/limiter"
	cache "github.com/go-pkgz/expirable-cache/v3"
	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/routegroup"

	"github.com/umputun/antispam/app/filter"
	"github.com/umputun/antispam/app/storage"
	"github.com/umputun/antispam/lib/antispam"
)

//go:generate moq --out mocks/filter.go --pkg mocks --with-resets --skip-ensure . Filter
//go:generate moq --out mocks/spam_history.go --pkg mocks --with-resets --skip-ensure . SpamHistory

// Server is a web API server.
type Server struct {
	Config
	checks cache.Cache[string, filter.Result]
}

// Config defines server parameters
type Config struct {
	Version    string        // version to show in /ping
	ListenAddr string        // listen address
	Filter     Filter        // spam filter
	AuthPasswd string        // basic auth password for user "antispam"
	CacheSize  int           // max number of cached check results, 0 disables cache
	CacheTTL   time.Duration // ttl of cached check results
	RateLimit  float64       // max requests per second per client, 0 for default
	History    SpamHistory   // optional detected spam history, GET /spam disabled if nil
}

// Filter is a spam filter interface.
type Filter interface {
	Check(msg string) filter.Result
	Train(ctx context.Context, msg string, isSpam bool) error
	Stats() filter.Stats
	Model() *antispam.Model
	Save(ctx context.Context) error
	Reload(ctx context.Context) error
	Rebuild(ctx context.Context) (antispam.Stats, error)
}

// SpamHistory provides recently detected spam
type SpamHistory interface {
	Read(ctx context.Context, limit int) ([]storage.DetectedSpamInfo, error)
}

// CheckRequest is a body of POST /check
type CheckRequest struct {
	Msg string `json:"msg"`
}

// TrainRequest is a body of POST /train
type TrainRequest struct {
	Msg  string `json:"msg"`
	Spam bool   `json:"spam"`
}

const (
	authUser           = "antispam"
	defaultRateLimit   = 50
	maxRequestSize     = 1024 * 1024
	defaultSpamEntries = 100
)

// NewServer creates a new web API server.
func NewServer(config Config) *Server {
	res := &Server{Config: config}
	if config.CacheSize > 0 {
		res.checks = cache.NewCache[string, filter.Result]().WithMaxKeys(config.CacheSize).WithTTL(config.CacheTTL)
	}
	return res
}

// Run starts server and accepts requests until context is done
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.ListenAddr, Handler: s.handler(), ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout: 10 * time.Second, WriteTimeout: 30 * time.Second, IdleTimeout: 30 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] failed to shutdown webapi server: %v", err)
		} else {
			log.Printf("[INFO] webapi server stopped")
		}
	}()

	log.Printf("[INFO] start webapi server on %s", s.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to run server: %w", err)
	}
	return nil
}

func (s *Server) handler() http.Handler {
	rate := s.RateLimit
	if rate <= 0 {
		rate = defaultRateLimit
	}
	lmt := tollbooth.NewLimiter(rate, nil)
	lmt.SetIPLookup(limiter.IPLookup{Name: "RemoteAddr"})

	router := routegroup.New(http.NewServeMux())
	router.Use(rest.Recoverer(lgr.Default()))
	router.Use(rest.AppInfo("antispam", "umputun", s.Version), rest.Ping)
	router.Use(tollbooth.HTTPMiddleware(lmt))
	router.Use(rest.SizeLimit(maxRequestSize))

	if s.AuthPasswd != "" {
		log.Printf("[INFO] basic auth enabled for webapi server")
	} else {
		log.Printf("[WARN] basic auth disabled, access to webapi is not protected")
	}

	router.Group().Route(func(api *routegroup.Bundle) {
		api.Use(s.authMiddleware(rest.BasicAuthWithUserPasswd(authUser, s.AuthPasswd)))
		api.HandleFunc("POST /check", s.checkHandler)
		api.HandleFunc("POST /train", s.trainHandler)

		api.HandleFunc("GET /model", s.modelStatsHandler)
		api.HandleFunc("GET /model/export", s.modelExportHandler)
		api.HandleFunc("POST /model/save", s.modelSaveHandler)
		api.HandleFunc("POST /model/reload", s.modelReloadHandler)
		api.HandleFunc("POST /model/rebuild", s.modelRebuildHandler)
		if s.History != nil {
			api.HandleFunc("GET /spam", s.spamHistoryHandler)
		}
	})
	return router
}

// checkHandler handles POST /check request, returns spam status, score and per-token ratings.
func (s *Server) checkHandler(w http.ResponseWriter, r *http.Request) {
	req := CheckRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		rest.RenderJSON(w, rest.JSON{"error": "can't decode request", "details": err.Error()})
		log.Printf("[WARN] can't decode request: %v", err)
		return
	}

	if s.checks != nil {
		if res, ok := s.checks.Get(req.Msg); ok {
			rest.RenderJSON(w, res)
			return
		}
	}
	res := s.Filter.Check(req.Msg)
	if s.checks != nil {
		s.checks.Set(req.Msg, res, 0)
	}
	rest.RenderJSON(w, res)
}

// trainHandler handles POST /train request, trains the model with the message as spam or ham
func (s *Server) trainHandler(w http.ResponseWriter, r *http.Request) {
	req := TrainRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		rest.RenderJSON(w, rest.JSON{"error": "can't decode request", "details": err.Error()})
		log.Printf("[WARN] can't decode request: %v", err)
		return
	}
	if req.Msg == "" {
		w.WriteHeader(http.StatusBadRequest)
		rest.RenderJSON(w, rest.JSON{"error": "empty message"})
		return
	}

	err := s.Filter.Train(r.Context(), req.Msg, req.Spam)
	s.purgeChecks() // model changed even if the sample was not recorded
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		rest.RenderJSON(w, rest.JSON{"error": "can't train", "details": err.Error()})
		log.Printf("[WARN] can't train: %v", err)
		return
	}
	log.Printf("[INFO] trained with %q, spam: %v", req.Msg, req.Spam)
	rest.RenderJSON(w, rest.JSON{"trained": true, "spam": req.Spam, "msg": req.Msg})
}

// modelStatsHandler handles GET /model request, returns model totals and number of tokens
func (s *Server) modelStatsHandler(w http.ResponseWriter, _ *http.Request) {
	rest.RenderJSON(w, s.Filter.Stats())
}

// modelExportHandler handles GET /model/export request, returns the model in its file format
func (s *Server) modelExportHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="model.json"`)
	if err := s.Filter.Model().Encode(w); err != nil {
		log.Printf("[WARN] can't export model: %v", err)
	}
}

func (s *Server) modelSaveHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.Filter.Save(r.Context()); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		rest.RenderJSON(w, rest.JSON{"error": "can't save model", "details": err.Error()})
		return
	}
	rest.RenderJSON(w, rest.JSON{"saved": true, "stats": s.Filter.Stats()})
}

func (s *Server) modelReloadHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.Filter.Reload(r.Context()); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		rest.RenderJSON(w, rest.JSON{"error": "can't reload model", "details": err.Error()})
		return
	}
	s.purgeChecks()
	rest.RenderJSON(w, rest.JSON{"reloaded": true, "stats": s.Filter.Stats()})
}

func (s *Server) modelRebuildHandler(w http.ResponseWriter, r *http.Request) {
	st, err := s.Filter.Rebuild(r.Context())
	if errors.Is(err, filter.ErrNoSamples) {
		w.WriteHeader(http.StatusBadRequest)
		rest.RenderJSON(w, rest.JSON{"error": "can't rebuild model", "details": err.Error()})
		return
	}
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		rest.RenderJSON(w, rest.JSON{"error": "can't rebuild model", "details": err.Error()})
		return
	}
	s.purgeChecks()
	rest.RenderJSON(w, rest.JSON{"rebuilt": true, "stats": st})
}

// spamHistoryHandler handles GET /spam?limit=N request, returns recently detected spam
func (s *Server) spamHistoryHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultSpamEntries
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			rest.RenderJSON(w, rest.JSON{"error": "invalid limit", "details": err.Error()})
			return
		}
		limit = n
	}
	entries, err := s.History.Read(r.Context(), limit)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		rest.RenderJSON(w, rest.JSON{"error": "can't read detected spam", "details": err.Error()})
		return
	}
	rest.RenderJSON(w, entries)
}

func (s *Server) purgeChecks() {
	if s.checks != nil {
		s.checks.Purge()
	}
}

// authMiddleware applies auth middleware only if password is set
func (s *Server) authMiddleware(mw func(next http.Handler) http.Handler) func(next http.Handler) http.Handler {
	if s.AuthPasswd == "" {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	return mw
}
