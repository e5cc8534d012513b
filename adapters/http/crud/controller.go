package crud

import (
	"net/http"

	"github.com/artpar/crudgate/core/crud"
	"github.com/artpar/crudgate/core/errs"
	"github.com/go-chi/chi/v5"
)

// Controller drives the five resource operations of one factory.
type Controller struct {
	factory crud.OperationFactory
	handler *Handler
}

// NewController creates a controller for factory.
func NewController(factory crud.OperationFactory, handler *Handler) *Controller {
	return &Controller{factory: factory, handler: handler}
}

// Routes mounts the resource routes on r.
func (c *Controller) Routes(r chi.Router) {
	r.Get("/", c.Index)
	r.Post("/", c.Create)
	r.Get("/{id}", c.Show)
	r.Put("/{id}", c.Update)
	r.Patch("/{id}", c.Update)
	r.Delete("/{id}", c.Delete)
}

func (c *Controller) Index(w http.ResponseWriter, r *http.Request)  { c.serve(w, r, crud.KindIndex) }
func (c *Controller) Show(w http.ResponseWriter, r *http.Request)   { c.serve(w, r, crud.KindShow) }
func (c *Controller) Create(w http.ResponseWriter, r *http.Request) { c.serve(w, r, crud.KindCreate) }
func (c *Controller) Update(w http.ResponseWriter, r *http.Request) { c.serve(w, r, crud.KindUpdate) }
func (c *Controller) Delete(w http.ResponseWriter, r *http.Request) { c.serve(w, r, crud.KindDelete) }

func (c *Controller) serve(w http.ResponseWriter, r *http.Request, kind crud.Kind) {
	op, ok := c.factory.Operation(kind)
	if !ok {
		op = crud.Action(c.factory.Resource(), func(*crud.Request, crud.Params) (crud.Result, error) {
			return crud.Result{}, errs.NotFound("Operation not supported")
		})
	}
	c.handler.Handle(w, r, op, crud.ParamsFromHTTP(r))
}
