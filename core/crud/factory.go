package crud

import "net/http"

// OperationFactory hands out operations by kind.
type OperationFactory interface {
	Resource() string
	Operation(kind Kind) (Operation, bool)
}

// Option configures a Factory.
type Option func(*factoryOptions)

type factoryOptions struct {
	createStatus int
	label        string
}

// WithCreateStatus sets the status returned by Create (201 by default).
func WithCreateStatus(code int) Option {
	return func(o *factoryOptions) {
		if http.StatusText(code) != "" {
			o.createStatus = code
		}
	}
}

// WithLabel overrides the resource name used in result messages.
func WithLabel(label string) Option {
	return func(o *factoryOptions) {
		o.label = label
	}
}

// Factory binds a validator and executor pair for one resource.
type Factory[C, E any] struct {
	base
	validator    Validator[C]
	executor     Executor[C, E]
	createStatus int
}

// NewFactory creates a factory for resource.
func NewFactory[C, E any](resource string, validator Validator[C], executor Executor[C, E], opts ...Option) *Factory[C, E] {
	o := factoryOptions{createStatus: http.StatusCreated, label: label(resource)}
	for _, opt := range opts {
		opt(&o)
	}
	return &Factory[C, E]{
		base:         base{resource: resource, label: o.label},
		validator:    validator,
		executor:     executor,
		createStatus: o.createStatus,
	}
}

func (f *Factory[C, E]) Create() Operation {
	return &CreateOperation[C, E]{base: f.base, validator: f.validator, executor: f.executor, status: f.createStatus}
}

func (f *Factory[C, E]) Update() Operation {
	return &UpdateOperation[C, E]{base: f.base, validator: f.validator, executor: f.executor}
}

func (f *Factory[C, E]) Delete() Operation {
	return &DeleteOperation[C, E]{base: f.base, executor: f.executor}
}

func (f *Factory[C, E]) Show() Operation {
	return &ShowOperation[C, E]{base: f.base, executor: f.executor}
}

func (f *Factory[C, E]) Index() Operation {
	return &IndexOperation[C, E]{base: f.base, executor: f.executor}
}

// Operation returns the operation for kind. KindAction has no generic operation.
func (f *Factory[C, E]) Operation(kind Kind) (Operation, bool) {
	switch kind {
	case KindIndex:
		return f.Index(), true
	case KindShow:
		return f.Show(), true
	case KindCreate:
		return f.Create(), true
	case KindUpdate:
		return f.Update(), true
	case KindDelete:
		return f.Delete(), true
	default:
		return nil, false
	}
}

var _ OperationFactory = (*Factory[struct{}, struct{}])(nil)
