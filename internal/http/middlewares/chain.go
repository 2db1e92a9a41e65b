package middlewares

import "net/http"

// Middleware decora un http.Handler.
type Middleware func(http.Handler) http.Handler

// Compose junta varios middlewares en uno. El primero de la lista queda
// más afuera: ve el request antes que nadie y la respuesta al final.
func Compose(mws ...Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			if mws[i] != nil {
				next = mws[i](next)
			}
		}
		return next
	}
}

// Chain envuelve h con mws; Chain(h, A, B) equivale a A(B(h)).
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	return Compose(mws...)(h)
}
