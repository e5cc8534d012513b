package crud

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/artpar/crudgate/core/errs"
)

// Kind identifies an operation.
type Kind int

const (
	KindIndex Kind = iota
	KindShow
	KindCreate
	KindUpdate
	KindDelete
	// KindAction marks operations that are not one of the five resource actions.
	KindAction
)

func (k Kind) String() string {
	switch k {
	case KindIndex:
		return "index"
	case KindShow:
		return "show"
	case KindCreate:
		return "create"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	default:
		return "action"
	}
}

// Validator turns a request into a typed command.
type Validator[C any] interface {
	ValidateCreate(req *Request) (C, error)
	ValidateUpdate(req *Request) (C, error)
}

// Executor runs commands and queries for one resource.
type Executor[C, E any] interface {
	Execute(ctx context.Context, cmd C) (E, error)
	ExecuteWithID(ctx context.Context, cmd C, id int64) (E, error)
	FindAll(ctx context.Context) ([]E, error)
	FindByID(ctx context.Context, id int64) (E, error)
	DeleteByID(ctx context.Context, id int64) (bool, error)
}

// Operation is one executable resource action.
type Operation interface {
	Kind() Kind
	Resource() string
	Execute(req *Request, params Params) (Result, error)
}

type base struct {
	resource string
	label    string
}

func (b base) Resource() string { return b.resource }

// CreateOperation validates a create command and executes it.
type CreateOperation[C, E any] struct {
	base
	validator Validator[C]
	executor  Executor[C, E]
	status    int
}

func (o *CreateOperation[C, E]) Kind() Kind { return KindCreate }

func (o *CreateOperation[C, E]) Execute(req *Request, _ Params) (Result, error) {
	cmd, err := o.validator.ValidateCreate(req)
	if err != nil {
		return Result{}, err
	}
	entity, err := o.executor.Execute(req.Context(), cmd)
	if err != nil {
		return Result{}, err
	}
	return NewResult(entity, o.label+" created successfully", o.status, nil), nil
}

// UpdateOperation validates an update command and applies it to the resolved id.
type UpdateOperation[C, E any] struct {
	base
	validator Validator[C]
	executor  Executor[C, E]
}

func (o *UpdateOperation[C, E]) Kind() Kind { return KindUpdate }

func (o *UpdateOperation[C, E]) Execute(req *Request, params Params) (Result, error) {
	id, err := ResolveID(params, req)
	if err != nil {
		return Result{}, err
	}
	cmd, err := o.validator.ValidateUpdate(req)
	if err != nil {
		return Result{}, err
	}
	entity, err := o.executor.ExecuteWithID(req.Context(), cmd, id)
	if err != nil {
		return Result{}, err
	}
	return NewResult(entity, o.label+" updated successfully", http.StatusOK, nil), nil
}

// DeleteOperation deletes the resolved id.
type DeleteOperation[C, E any] struct {
	base
	executor Executor[C, E]
}

func (o *DeleteOperation[C, E]) Kind() Kind { return KindDelete }

func (o *DeleteOperation[C, E]) Execute(req *Request, params Params) (Result, error) {
	id, err := ResolveID(params, req)
	if err != nil {
		return Result{}, err
	}
	deleted, err := o.executor.DeleteByID(req.Context(), id)
	if err != nil {
		return Result{}, err
	}
	if !deleted {
		return Result{}, errs.NotFound(fmt.Sprintf("%s %d not found", o.label, id))
	}
	return NewResult(nil, o.label+" deleted successfully", http.StatusOK, nil), nil
}

// ShowOperation loads the resolved id.
type ShowOperation[C, E any] struct {
	base
	executor Executor[C, E]
}

func (o *ShowOperation[C, E]) Kind() Kind { return KindShow }

func (o *ShowOperation[C, E]) Execute(req *Request, params Params) (Result, error) {
	id, err := ResolveID(params, req)
	if err != nil {
		return Result{}, err
	}
	entity, err := o.executor.FindByID(req.Context(), id)
	if err != nil {
		return Result{}, err
	}
	return NewResult(entity, o.label+" retrieved successfully", http.StatusOK, nil), nil
}

// IndexOperation lists every entity. An empty collection is an empty list.
type IndexOperation[C, E any] struct {
	base
	executor Executor[C, E]
}

func (o *IndexOperation[C, E]) Kind() Kind { return KindIndex }

func (o *IndexOperation[C, E]) Execute(req *Request, _ Params) (Result, error) {
	items, err := o.executor.FindAll(req.Context())
	if err != nil {
		return Result{}, err
	}
	if items == nil {
		items = []E{}
	}
	return NewResult(items, o.label+" list retrieved successfully", http.StatusOK, map[string]any{
		"total": len(items),
	}), nil
}

// ActionFunc is a custom operation body.
type ActionFunc func(req *Request, params Params) (Result, error)

// Action wraps fn as an operation of KindAction.
func Action(resource string, fn ActionFunc) Operation {
	return &actionOperation{base: base{resource: resource, label: label(resource)}, fn: fn}
}

type actionOperation struct {
	base
	fn ActionFunc
}

func (o *actionOperation) Kind() Kind { return KindAction }

func (o *actionOperation) Execute(req *Request, params Params) (Result, error) {
	return o.fn(req, params)
}

func label(resource string) string {
	if resource == "" {
		return "Resource"
	}
	return strings.ToUpper(resource[:1]) + resource[1:]
}
