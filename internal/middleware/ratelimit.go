package middleware

import (
	"net"
	"net/http"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Amund-Fremming/tero.platform/internal/apierror"
)

const maxTrackedClients = 4096

// RateLimiter hands out one token bucket per client address. The least
// recently seen clients are forgotten once maxTrackedClients is reached.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	clients *lru.Cache[string, *rate.Limiter]
	log     logrus.FieldLogger
}

func NewRateLimiter(perSecond float64, burst int, log logrus.FieldLogger) (*RateLimiter, error) {
	clients, err := lru.New[string, *rate.Limiter](maxTrackedClients)
	if err != nil {
		return nil, err
	}
	return &RateLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		clients: clients,
		log:     log,
	}, nil
}

func (l *RateLimiter) limiter(client string) *rate.Limiter {
	if lim, ok := l.clients.Get(client); ok {
		return lim
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	// another request may have raced us; keep whichever landed first
	if prev, ok, _ := l.clients.PeekOrAdd(client, lim); ok {
		return prev
	}
	return lim
}

// Middleware answers 429 once a client exhausts its bucket. It expects
// chi's RealIP to have normalised RemoteAddr.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := r.RemoteAddr
		if host, _, err := net.SplitHostPort(client); err == nil {
			client = host
		}
		if !l.limiter(client).Allow() {
			l.log.WithField("client", client).Debug("rate limited")
			apierror.Write(w, r, l.log, apierror.Api(http.StatusTooManyRequests, "too many requests"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
