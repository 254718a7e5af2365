package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

func TestRateLimit(t *testing.T) {
	var calls int
	next := func(ctx *fasthttp.RequestCtx) {
		calls++
		ctx.SetStatusCode(fasthttp.StatusOK)
	}

	handler := RateLimit(rate.Limit(0.001), 2)(next)

	first := &fasthttp.RequestCtx{}
	handler(first)
	assert.Equal(t, fasthttp.StatusOK, first.Response.StatusCode())

	second := &fasthttp.RequestCtx{}
	handler(second)
	assert.Equal(t, fasthttp.StatusOK, second.Response.StatusCode())

	// burst of two exhausted, third request from the same client is rejected
	third := &fasthttp.RequestCtx{}
	handler(third)
	assert.Equal(t, fasthttp.StatusTooManyRequests, third.Response.StatusCode())

	assert.Equal(t, 2, calls)
}

func TestRateLimit_AllowsWithinBudget(t *testing.T) {
	var calls int
	handler := RateLimit(rate.Limit(100), 100)(func(ctx *fasthttp.RequestCtx) {
		calls++
	})

	for i := 0; i < 10; i++ {
		ctx := &fasthttp.RequestCtx{}
		handler(ctx)
	}

	assert.Equal(t, 10, calls)
}
