package citaprevia

import (
	"context"
	"fmt"
	"net/http/cookiejar"
	"time"

	"citaprevia/internal/components/telemetry"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// transport wraps the cookie carrying http client every request to the upstream goes through.
type transport struct {
	http *resty.Client
}

func newTransport(opts ClientOptions, e endpoints, tel telemetry.API) (transport, error) {
	httpClient := resty.New()
	httpClient.SetBaseURL(e.base.String())

	jar, err := cookiejar.New(nil)
	if err != nil {
		return transport{}, err
	}
	httpClient.SetCookieJar(jar)

	httpClient.SetHeader("user-agent", opts.UserAgent)
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(e.base.Hostname()))
	httpClient.SetTimeout(opts.Timeout)

	if opts.RateLimit > 0 {
		// burst of at least one so no request is ever rejected outright
		burst := max(int(opts.RateLimit), 1)
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, tel, opts.Dump)

	return transport{http: httpClient}, nil
}

func (t transport) request(ctx context.Context) *resty.Request {
	return t.http.R().SetContext(ctx)
}

// send executes the request and returns the body of a 2xx response.
func (t transport) send(req *resty.Request, method, endpoint string) ([]byte, error) {
	res, err := req.Execute(method, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	if !res.IsSuccess() {
		return nil, &StatusError{
			Method:     method,
			Url:        endpoint,
			StatusCode: res.StatusCode(),
			Status:     res.Status(),
		}
	}
	return res.Body(), nil
}

func cacheBuster(now time.Time) string {
	return fmt.Sprint(now.UnixMilli())
}
