package api

import (
	"net/http"
	"route-scheduling-service/internal/api/handlers"
	"route-scheduling-service/internal/platform/obs"
	"route-scheduling-service/internal/ports"
	"route-scheduling-service/internal/services"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Deps are the services the HTTP layer exposes.
type Deps struct {
	Logger     zerolog.Logger
	Optimizer  *services.RouteOptimizer
	Drivers    *services.MultiDriverOptimizer
	Overlay    *services.VisibilityOverlay
	Converter  *services.RouteToTaskConverter
	Batch      *services.BatchTaskCreator
	Catalog    ports.TemplateCatalog
	HubAddress string
	Checks     map[string]handlers.Check
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(d Deps) http.Handler {
	obs.RegisterDefault()
	mux := http.NewServeMux()

	routes := &handlers.RouteHandler{
		Optimizer:  d.Optimizer,
		Drivers:    d.Drivers,
		DefaultHub: d.HubAddress,
	}
	visibility := &handlers.VisibilityHandler{Overlay: d.Overlay}
	tasks := &handlers.TaskHandler{
		Converter: d.Converter,
		Creator:   d.Batch,
		Catalog:   d.Catalog,
	}
	health := &handlers.HealthHandler{Checks: d.Checks}

	handle := func(path string, h http.HandlerFunc) {
		mux.Handle(path, instrument(path, h))
	}

	mux.HandleFunc("/health", handlers.Health)
	mux.Handle("/metrics", promhttp.HandlerFor(obs.Registry, promhttp.HandlerOpts{}))
	handle("/ready", health.Ready)

	handle("/routes/optimize", routes.Optimize)
	handle("/routes/optimize-drivers", routes.OptimizeDrivers)
	handle("/routes/rebalance", routes.Rebalance)

	handle("/visibility/hide", visibility.Hide)
	handle("/visibility/show", visibility.Show)
	handle("/visibility/show-all", visibility.ShowAll)
	handle("/visibility/hidden", visibility.Hidden)
	handle("/visibility/apply", visibility.Apply)
	handle("/visibility/criteria", visibility.Criteria)
	handle("/visibility/templates", visibility.Templates)
	handle("/visibility/templates/apply", visibility.ApplyTemplate)

	handle("/tasks/templates", tasks.Templates)
	handle("/tasks/convert", tasks.Convert)
	handle("/tasks/batch", tasks.Batch)

	return requestContext(d.Logger, mux)
}
