// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/luxfi/log"
	"golang.org/x/time/rate"
)

var (
	_ Throttler = (*RateThrottler)(nil)
	_ Throttler = NoOpThrottler{}
)

// Throttler decides whether a request from client may be served.
type Throttler interface {
	Handle(client string) bool
}

// NoOpThrottler serves every request.
type NoOpThrottler struct{}

func (NoOpThrottler) Handle(string) bool {
	return true
}

// RateThrottler gives every client its own token bucket.
type RateThrottler struct {
	limit      rate.Limit
	burst      int
	maxClients int

	lock     sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewRateThrottler allows each client limit requests per second with bursts
// of burst. Once maxClients buckets exist they are all reset.
func NewRateThrottler(limit rate.Limit, burst int, maxClients int) *RateThrottler {
	return &RateThrottler{
		limit:      limit,
		burst:      burst,
		maxClients: maxClients,
		limiters:   make(map[string]*rate.Limiter),
	}
}

func (r *RateThrottler) Handle(client string) bool {
	r.lock.Lock()
	defer r.lock.Unlock()

	l, ok := r.limiters[client]
	if !ok {
		if len(r.limiters) >= r.maxClients {
			clear(r.limiters)
		}
		l = rate.NewLimiter(r.limit, r.burst)
		r.limiters[client] = l
	}
	return l.Allow()
}

func throttle(throttler Throttler, logger log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		client := clientOf(c)
		if !throttler.Handle(client) {
			logger.Debug("dropping request",
				log.String("client", client),
				log.String("path", c.FullPath()),
				log.UserString("reason", "throttled"),
			)
			abortWithError(c, http.StatusTooManyRequests, errThrottled)
			return
		}
		c.Next()
	}
}

// clientOf identifies the caller by the subject of its token, falling back
// to its address.
func clientOf(c *gin.Context) string {
	if claims, ok := claimsOf(c); ok && claims.Subject != "" {
		return "sub:" + claims.Subject
	}
	return "ip:" + c.ClientIP()
}
