package middleware

import (
	"net"
	"sync"

	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

// RateLimit applies a per-client token bucket keyed by remote IP.
func RateLimit(limit rate.Limit, burst int) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	var (
		mu       sync.Mutex
		visitors = make(map[string]*rate.Limiter)
	)

	getVisitor := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		limiter, exists := visitors[ip]
		if !exists {
			limiter = rate.NewLimiter(limit, burst)
			visitors[ip] = limiter
		}
		return limiter
	}

	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			ip := clientIP(ctx)
			if !getVisitor(ip).Allow() {
				ctx.SetStatusCode(fasthttp.StatusTooManyRequests)
				return
			}
			next(ctx)
		}
	}
}

func clientIP(ctx *fasthttp.RequestCtx) string {
	addr := ctx.RemoteAddr()
	if addr == nil {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
