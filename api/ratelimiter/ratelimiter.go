package ratelimiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hashpool/snarkOS-1/common"
	"github.com/hashpool/snarkOS-1/config"
)

var rateLimiters = common.NewGoCache(10*time.Minute, 5*time.Minute)
var lock sync.Mutex

func GetLimiter(key string, limit float64, burst int) *rate.Limiter {
	lock.Lock()
	defer lock.Unlock()

	if limiter, ok := rateLimiters.Get([]byte(key)); ok {
		return limiter.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(rate.Limit(limit), burst)
	rateLimiters.Set([]byte(key), limiter)

	return limiter
}

// AllowRequest reports whether one more request from this client host is
// within the configured rate.
func AllowRequest(host string) bool {
	limiter := GetLimiter("rpc:"+host, config.Parameters.RPCRateLimit, config.Parameters.RPCRateBurst)
	return limiter.Allow()
}
