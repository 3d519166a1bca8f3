package refusal

import (
	"sync"

	"github.com/jjenkins/foirequests/internal/legislation"
	"github.com/jjenkins/foirequests/internal/model"
)

// Advice exposes the refusal advice tree that applies to a request. The
// legislation is resolved on first use and cached for the instance.
type Advice struct {
	store   *Store
	request *model.InfoRequest
	resolve func(any) legislation.Legislation

	once sync.Once
	law  legislation.Legislation
}

// Option configures an Advice
type Option func(*Advice)

// WithRequest sets the request the advice is about
func WithRequest(r *model.InfoRequest) Option {
	return func(a *Advice) {
		a.request = r
	}
}

// WithResolver overrides how legislation is resolved from the request
func WithResolver(fn func(any) legislation.Legislation) Option {
	return func(a *Advice) {
		a.resolve = fn
	}
}

// New creates an Advice backed by store
func New(store *Store, opts ...Option) *Advice {
	if store == nil {
		store = NewStore()
	}
	a := &Advice{store: store, resolve: legislation.Resolve}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Default creates an Advice for request over the process-wide store
func Default(request *model.InfoRequest) *Advice {
	return New(Current(), WithRequest(request))
}

// Request returns the request the advice is about, which may be nil
func (a *Advice) Request() *model.InfoRequest {
	return a.request
}

// Legislation returns the legislation the advice applies to
func (a *Advice) Legislation() legislation.Legislation {
	a.once.Do(func() {
		if a.request == nil {
			a.law = a.resolve(nil)
			return
		}
		a.law = a.resolve(a.request)
	})
	return a.law
}

// Questions returns the questions for the resolved legislation
func (a *Advice) Questions() []Question {
	return a.store.Questions(a.Legislation().Key)
}

// Actions returns the actions for the resolved legislation
func (a *Advice) Actions() []Question {
	return a.store.Actions(a.Legislation().Key)
}

// Equal reports whether two Advice values are backed by equal data and
// concern the same request. The backing stores need not be the same
// instance.
func (a *Advice) Equal(o *Advice) bool {
	if a == nil || o == nil {
		return a == o
	}
	return a.store.Equal(o.store) && a.request.Equal(o.request)
}
