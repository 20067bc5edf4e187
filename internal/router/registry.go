package router

import "github.com/gin-gonic/gin"

// Module mounts one feature's routes.
type Module interface {
	Register(rg *gin.RouterGroup)
}

// Registry collects modules. API modules mount under /api behind the shared
// middleware; root modules mount on the engine itself.
type Registry struct {
	Engine      *gin.Engine
	API         *gin.RouterGroup
	middlewares []gin.HandlerFunc
	modules     []Module
	roots       []Module
}

func NewRegistry(engine *gin.Engine) *Registry {
	api := engine.Group("/api")
	return &Registry{Engine: engine, API: api}
}

func (r *Registry) Use(mw ...gin.HandlerFunc) {
	r.middlewares = append(r.middlewares, mw...)
}

func (r *Registry) Add(mod Module) {
	r.modules = append(r.modules, mod)
}

// AddRoot registers a module outside /api, e.g. health probes.
func (r *Registry) AddRoot(mod Module) {
	r.roots = append(r.roots, mod)
}

func (r *Registry) RegisterAll() {
	for _, m := range r.roots {
		m.Register(&r.Engine.RouterGroup)
	}
	if len(r.middlewares) > 0 {
		r.API.Use(r.middlewares...)
	}
	for _, m := range r.modules {
		m.Register(r.API)
	}
}
