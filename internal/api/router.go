package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// RouterConfig holds what Router needs besides the handler
type RouterConfig struct {
	Auth    *Authorizer
	Metrics *Metrics
	Tracer  *Tracer
	Logger  logrus.FieldLogger
}

// Router creates and configures the HTTP router. The middleware wraps the
// whole mux so unknown operations are authenticated like known ones.
func Router(handler *Handler, cfg RouterConfig) http.Handler {
	// paths are matched as sent; the handlers reject shapes like /get//x
	router := mux.NewRouter().SkipClean(true)

	router.HandleFunc("/get", handler.GetVariable)
	router.PathPrefix("/get/").HandlerFunc(handler.GetVariable)
	router.HandleFunc("/set", handler.SetVariables)
	router.PathPrefix("/set/").HandlerFunc(handler.SetVariables)
	router.HandleFunc("/all", handler.ListVariables)
	router.PathPrefix("/all/").HandlerFunc(handler.ListVariables)
	router.NotFoundHandler = http.HandlerFunc(handler.UnknownOperation)
	router.MethodNotAllowedHandler = http.HandlerFunc(handler.UnknownOperation)

	middleware := []Middleware{
		RequestIDMiddleware,
		LoggingMiddleware(cfg.Logger),
		RecoveryMiddleware(cfg.Logger),
	}
	if cfg.Metrics != nil {
		middleware = append(middleware, cfg.Metrics.Middleware)
	}
	if cfg.Tracer != nil {
		middleware = append(middleware, cfg.Tracer.Middleware)
	}
	middleware = append(middleware, cfg.Auth.Middleware)

	return Chain(router, middleware...)
}

// OpsRouter serves /metrics from gatherer and /healthz from health
func OpsRouter(gatherer prometheus.Gatherer, health *HealthManager) http.Handler {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		Timeout: 10 * time.Second,
	})).Methods(http.MethodGet)
	router.HandleFunc("/healthz", health.HealthCheckHandler).Methods(http.MethodGet)
	return router
}
