// Package middleware implements the interceptor chain wrapped around every API
// request, and the interceptors for tracing, request logging and metrics.
package middleware

import (
	"net/http"

	appctx "audition-backend/internal/context"
	apperrors "audition-backend/internal/errors"

	"github.com/go-chi/chi/v5/middleware"
)

// Interceptor observes a request before and after its handler.
//
// PreHandle runs before the handler and returns the request to continue with.
// Returning false stops the chain; the handler is skipped and no response is
// written by the chain.
//
// AfterCompletion runs once the response is complete, for every interceptor
// whose PreHandle returned true, in reverse order. It runs on every exit path,
// including handler errors and panics. status is the final response status
// and err the error that terminated processing, if any.
type Interceptor interface {
	PreHandle(w http.ResponseWriter, r *http.Request) (*http.Request, bool)
	AfterCompletion(r *http.Request, status int, err error)
}

// RecoverFunc renders the response for a panic that reached the chain.
type RecoverFunc func(w http.ResponseWriter, r *http.Request, err error)

// Chain runs interceptors around a handler.
type Chain struct {
	interceptors []Interceptor
	recoverer    RecoverFunc
}

// NewChain creates a chain running interceptors in the given order.
func NewChain(interceptors ...Interceptor) *Chain {
	return &Chain{
		interceptors: interceptors,
		recoverer:    defaultRecover,
	}
}

// WithRecoverer sets the function that renders panics caught by the chain.
func (c *Chain) WithRecoverer(fn RecoverFunc) *Chain {
	c.recoverer = fn
	return c
}

// Handler wraps next with the chain.
func (c *Chain) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := appctx.NewRequestState()
		r = r.WithContext(appctx.WithRequestState(r.Context(), state))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		for _, interceptor := range c.interceptors {
			req, ok := interceptor.PreHandle(ww, r)
			if !ok {
				return
			}
			r = req
			defer c.complete(interceptor, r, ww, state)
		}

		// Deferred last, so it runs before every AfterCompletion.
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				state.RecordError(apperrors.NewPanicError(rec))
				panic(rec)
			}
			err := apperrors.NewPanicError(rec)
			state.RecordError(err)
			if ww.Status() == 0 {
				c.recoverer(ww, r, err)
			}
		}()

		next.ServeHTTP(ww, r)
	})
}

func (c *Chain) complete(interceptor Interceptor, r *http.Request, ww middleware.WrapResponseWriter, state *appctx.RequestState) {
	interceptor.AfterCompletion(r, statusOf(ww), state.Err())
}

// statusOf returns the status written so far; a handler that never wrote
// anything is answered with 200 by net/http.
func statusOf(ww middleware.WrapResponseWriter) int {
	if status := ww.Status(); status != 0 {
		return status
	}
	return http.StatusOK
}

func defaultRecover(w http.ResponseWriter, r *http.Request, err error) {
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
