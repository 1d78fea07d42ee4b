package telemetry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/semconv/v1.13.0/httpconv"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_resty_request  = "resty.request"
	report_resty_response = "resty.response"
	report_resty_status   = "resty.unexpected-status"
	report_resty_body     = "resty.response-body"
)

// DumpOutput receives a full transcript of every request/response pair.
type DumpOutput interface {
	Write(id string, contents string)
}

// headers whose values never end up in a transcript
var redactedHeaders = map[string]bool{
	"Cookie":     true,
	"Set-Cookie": true,
}

type upstreamCall struct {
	id       uint64
	endpoint string
}

type upstreamCallKey struct{}

type instrumentResty struct {
	tel      API
	tracer   trace.Tracer
	duration metric.Float64Histogram
	output   DumpOutput
	counter  *atomic.Uint64
}

// InstrumentResty reports every request made by the client. The request and its status code go out at the
// debug level and the full body at the trace level. Each call also gets a span and a duration measurement
// labelled with the endpoint it hit (the last path segment). `output` can be nil, if it isn't, every
// request/response pair is also written to it with cookies redacted.
func InstrumentResty(client *resty.Client, tel API, output DumpOutput) {
	duration, err := otel.Meter("citaprevia/resty").Float64Histogram(
		"citaprevia.upstream.duration",
		metric.WithUnit("ms"),
		metric.WithDescription("time taken by each request to the appointment system"),
	)
	if err != nil {
		tel.ReportWarning(report_resty_request, fmt.Errorf("create duration histogram: %w", err))
	}

	i := instrumentResty{
		tel:      tel,
		tracer:   otel.Tracer("citaprevia/resty"),
		duration: duration,
		output:   output,
		counter:  &atomic.Uint64{},
	}
	client.OnBeforeRequest(i.onBeforeRequest)
	client.OnAfterResponse(i.onAfterResponse)
	client.OnError(i.onError)
}

func endpointOf(rawUrl string) string {
	u, err := url.Parse(rawUrl)
	if err != nil || u.Path == "" {
		return rawUrl
	}
	return path.Base(u.Path)
}

func (i instrumentResty) onBeforeRequest(_ *resty.Client, req *resty.Request) error {
	call := upstreamCall{
		id:       i.counter.Add(1),
		endpoint: endpointOf(req.URL),
	}
	ctx, _ := i.tracer.Start(
		req.Context(),
		fmt.Sprintf("%s %s", req.Method, call.endpoint),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	ctx = context.WithValue(ctx, upstreamCallKey{}, call)
	req.SetContext(ctx)

	i.tel.ReportDebug(report_resty_request, call.id, req.Method, req.URL)
	return nil
}

func (i instrumentResty) record(ctx context.Context, call upstreamCall, elapsed time.Duration, status string) {
	if i.duration == nil {
		return
	}
	i.duration.Record(
		ctx,
		float64(elapsed)/float64(time.Millisecond),
		metric.WithAttributes(
			attribute.String("endpoint", call.endpoint),
			attribute.String("status", status),
		),
	)
}

func (i instrumentResty) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	ctx := res.Request.Context()
	call, _ := ctx.Value(upstreamCallKey{}).(upstreamCall)

	span := trace.SpanFromContext(ctx)
	defer span.End()
	// RawRequest is still nil in onBeforeRequest
	span.SetAttributes(httpconv.ClientRequest(res.Request.RawRequest)...)
	span.SetAttributes(httpconv.ClientResponse(res.RawResponse)...)

	i.record(ctx, call, res.Time(), strconv.Itoa(res.StatusCode()))
	i.tel.ReportDebug(report_resty_response, call.id, res.Time().String(), res.Status())
	if !res.IsSuccess() {
		span.SetStatus(codes.Error, res.Status())
		i.tel.ReportWarning(report_resty_status, call.endpoint, res.Status())
	}
	i.tel.ReportTrace(report_resty_body, call.id, res.String())

	if i.output != nil {
		i.output.Write(fmt.Sprintf("%04d-%s", call.id, call.endpoint), formatHttpMessage(res))
	}
	return nil
}

func (i instrumentResty) onError(req *resty.Request, err error) {
	ctx := req.Context()
	call, ok := ctx.Value(upstreamCallKey{}).(upstreamCall)
	if !ok {
		// failed before onBeforeRequest ran
		i.tel.ReportBroken(report_resty_response, err, req.Method, req.URL)
		return
	}

	span := trace.SpanFromContext(ctx)
	defer span.End()
	span.RecordError(err)
	span.SetStatus(codes.Error, "request failed")

	elapsed := time.Since(req.Time)
	i.record(ctx, call, elapsed, "error")
	i.tel.ReportBroken(report_resty_response, err, req.Method, req.URL, elapsed)
}

func formatHeaders(headers http.Header) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out strings.Builder
	for _, k := range keys {
		for _, v := range headers[k] {
			if redactedHeaders[k] {
				v = "<redacted>"
			}
			fmt.Fprintf(&out, "%s: %s\n", k, v)
		}
	}
	return strings.TrimSuffix(out.String(), "\n")
}

func formatRequestBody(req *http.Request) string {
	if req.GetBody == nil {
		return "<empty>"
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Sprintf("<failed to get request body: %s>", err)
	}
	contents, err := io.ReadAll(body)
	if err != nil {
		return fmt.Sprintf("<failed to read request body: %s>", err)
	}
	return string(contents)
}

func formatHttpMessage(res *resty.Response) string {
	var out strings.Builder

	fmt.Fprintf(&out, "> %s %s\n", res.Request.Method, res.Request.URL)
	out.WriteString(formatHeaders(res.Request.RawRequest.Header))
	out.WriteString("\n\n")
	out.WriteString(formatRequestBody(res.Request.RawRequest))

	location := res.Request.URL
	redirected, err := res.RawResponse.Location()
	if err == nil {
		location = redirected.String()
	}
	fmt.Fprintf(&out, "\n\n< %d %s (%s)\n", res.StatusCode(), location, res.Time())
	out.WriteString(formatHeaders(res.Header()))
	out.WriteString("\n\n")
	out.WriteString(res.String())

	return out.String()
}
