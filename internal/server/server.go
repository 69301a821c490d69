// Package server wires the Library API routes onto a gin engine.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	ginguard "github.com/fabiensh/library-api/framework/gin"
	"github.com/fabiensh/library-api/internal/config"
	"github.com/fabiensh/library-api/internal/library"
	"github.com/fabiensh/library-api/metrics"
	"github.com/fabiensh/library-api/permission"
)

// Dependencies are the collaborators of the router. Guard, Books and Loans
// are required.
type Dependencies struct {
	Guard *ginguard.Guard
	Books *library.BookRepository
	Loans *library.LoanRepository
	Auth  config.AuthConfig

	// Gatherer backs GET /metrics. Nil disables the route.
	Gatherer prometheus.Gatherer
	// Metrics records per-request counters. Nil means metrics.Noop.
	Metrics metrics.Recorder
	// Logger writes the access log. Nil means logrus.StandardLogger().
	Logger logrus.FieldLogger
}

type route struct {
	method      string
	path        string
	matcher     permission.Matcher
	permissions []permission.Permission
	handler     gin.HandlerFunc
}

// NewRouter builds the gin engine serving the API. It fails when a route
// requirement is invalid, so a misconfigured server never starts.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.Guard == nil || deps.Books == nil || deps.Loans == nil {
		return nil, errors.New("server: guard, books and loans are required")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Noop{}
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}

	h := &handlers{
		books: deps.Books,
		loans: deps.Loans,
		auth:  deps.Auth,
	}

	router := gin.New()
	router.Use(gin.Recovery(), accessLog(deps.Logger, deps.Metrics))

	router.GET("/healthz", h.health)
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	router.GET("/auth/config", h.authConfig)
	router.GET("/auth/introspection", deps.Guard.Authenticated(), h.introspection)

	routes := []route{
		{http.MethodGet, "/books", permission.MatchAll, []permission.Permission{permission.BookRead}, h.listBooks},
		{http.MethodGet, "/books/:id", permission.MatchAll, []permission.Permission{permission.BookRead}, h.getBook},
		{http.MethodPost, "/books", permission.MatchAll, []permission.Permission{permission.BookManage}, h.createBook},

		{http.MethodPost, "/loans", permission.MatchAll, []permission.Permission{permission.LoanRequest}, h.requestLoan},
		{http.MethodGet, "/loans", permission.MatchAll, []permission.Permission{permission.LoanRead}, h.listLoans},
		{http.MethodGet, "/loans/all", permission.MatchAll, []permission.Permission{permission.LoanApprove}, h.listAllLoans},
		{http.MethodPost, "/loans/:id/approve", permission.MatchAll, []permission.Permission{permission.LoanApprove}, h.approveLoan},
		{http.MethodPost, "/loans/:id/return", permission.MatchAny, []permission.Permission{permission.LoanRequest, permission.LoanApprove}, h.returnLoan},
		{http.MethodDelete, "/loans/:id", permission.MatchAll, []permission.Permission{permission.LoanApprove}, h.deleteLoan},
	}

	for _, r := range routes {
		guard, err := deps.Guard.Require(r.matcher, r.permissions...)
		if err != nil {
			return nil, err
		}
		router.Handle(r.method, r.path, guard, r.handler)
	}

	return router, nil
}

// accessLog logs every request and records its outcome.
func accessLog(logger logrus.FieldLogger, recorder metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		duration := time.Since(start)

		tags := map[string]string{
			"method": c.Request.Method,
			"route":  route,
			"status": http.StatusText(status),
		}
		recorder.IncCounter("http_requests_total", tags)
		recorder.ObserveHistogram("http_request_duration_seconds", duration.Seconds(), map[string]string{"route": route})

		entry := logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   status,
			"duration": duration,
		})
		if status >= http.StatusInternalServerError {
			entry.Error("request failed")
			return
		}
		entry.Debug("request served")
	}
}
