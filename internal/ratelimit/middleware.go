package ratelimit

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/af-corp/aegis-admin/internal/auth"
	"github.com/af-corp/aegis-admin/internal/httputil"
	"github.com/af-corp/aegis-admin/internal/telemetry"
)

const (
	defaultSubmitRPM = 30

	headerRateLimitRequests          = "X-RateLimit-Limit-Requests"
	headerRateLimitRemainingRequests = "X-RateLimit-Remaining-Requests"
	headerRateLimitReset             = "X-RateLimit-Reset-Requests"
	headerRetryAfter                 = "Retry-After"
)

// SubmitMiddleware limits model submissions per admin key. limit returns the
// configured default RPM; a key's own rpm_limit takes precedence.
func SubmitMiddleware(limiter Checker, limit func() int, metrics *telemetry.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := w.Header().Get("X-Request-ID")

			authInfo, ok := auth.AuthFromContext(r.Context())
			if !ok {
				// auth middleware rejects these
				next.ServeHTTP(w, r)
				return
			}

			rpm := limit()
			if rpm <= 0 {
				rpm = defaultSubmitRPM
			}
			if authInfo.RPMLimit != nil {
				rpm = *authInfo.RPMLimit
			}

			result, _ := limiter.Check(r.Context(), "submit:"+authInfo.KeyID, int64(rpm), time.Minute)

			w.Header().Set(headerRateLimitRequests, strconv.Itoa(rpm))
			w.Header().Set(headerRateLimitRemainingRequests, strconv.FormatInt(result.Remaining, 10))
			w.Header().Set(headerRateLimitReset, result.ResetAt.Format(time.RFC3339))

			if !result.Allowed {
				slog.Warn("rate limit exceeded",
					"request_id", reqID,
					"key_id", authInfo.KeyID,
					"dimension", "submit_rpm",
					"limit", rpm,
				)
				if metrics != nil {
					metrics.RecordRateLimitHit("submit_rpm")
				}
				w.Header().Set(headerRetryAfter, strconv.Itoa(int(result.RetryAfter.Seconds())))
				httputil.WriteRateLimitError(w, reqID,
					fmt.Sprintf("Rate limit exceeded: %d model submissions per minute. Retry after %s", rpm, result.ResetAt.Format(time.RFC3339)))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
