// Package citaprevia talks to the Madrid city council appointment system. It owns the session
// handshake the upstream requires and turns its JSON, HTML and embedded script payloads into
// typed results.
package citaprevia

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"time"

	"citaprevia/internal/components/assert"
	"citaprevia/internal/components/chrono"
	"citaprevia/internal/components/telemetry"
)

const (
	report_client_closest_office       = "client.closest-office"
	report_client_appointment_days     = "client.appointment-days"
	report_client_slots_for_day        = "client.slots-for-day"
	report_client_list_offices         = "client.list-offices"
	report_client_list_procedures      = "client.list-procedures"
	report_client_office_detail        = "client.office-detail"
	report_client_office_detail_noinit = "client.office-detail-without-session"
)

type ClientOptions struct {
	// BaseUrl defaults to DefaultBaseUrl.
	BaseUrl string
	// UserAgent defaults to DefaultUserAgent.
	UserAgent string
	// Timeout defaults to 30 seconds.
	Timeout time.Duration
	// RateLimit is the maximum requests per second, 0 means unlimited.
	RateLimit float64
	// Dump receives full http transcripts, it may be nil.
	Dump telemetry.DumpOutput
	// Extractor defaults to RegexDaysExtractor.
	Extractor DaysExtractor
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.BaseUrl == "" {
		o.BaseUrl = DefaultBaseUrl
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.Extractor == nil {
		o.Extractor = RegexDaysExtractor{}
	}
	return o
}

// Client is safe for concurrent use, every operation that needs a session waits for the
// shared handshake to complete first.
type Client struct {
	endpoints endpoints
	session   *session
	extractor DaysExtractor

	tel   telemetry.API
	clock chrono.API
}

func NewClient(opts ClientOptions, tel telemetry.API, clock chrono.API) (*Client, error) {
	assert.NotNil(tel)
	assert.NotNil(clock)

	tel = telemetry.NewScopedAPI("citaprevia", tel)
	opts = opts.withDefaults()

	e, err := resolveEndpoints(opts.BaseUrl)
	if err != nil {
		return nil, err
	}
	t, err := newTransport(opts, e, tel)
	if err != nil {
		return nil, err
	}

	return &Client{
		endpoints: e,
		session: &session{
			transport: t,
			endpoints: e,
			tel:       tel,
		},
		extractor: opts.Extractor,
		tel:       tel,
		clock:     clock,
	}, nil
}

func (c *Client) transport() transport {
	return c.session.transport
}

func opError(op string, err error) error {
	return fmt.Errorf("citaprevia: %s: %w", op, err)
}

// ClosestOffice returns the office with the nearest opening for a procedure, nil if no office has one.
func (c *Client) ClosestOffice(ctx context.Context, procedure ProcedureId) (*Office, error) {
	const op = "closest office"

	err := c.session.ensureInit(ctx)
	if err != nil {
		return nil, opError(op, err)
	}

	req := c.transport().request(ctx).
		SetHeader("accept", "application/json").
		SetFormData(map[string]string{
			"idTipoTramite": procedure.String(),
		})
	body, err := c.transport().send(req, http.MethodPost, c.endpoints.closestOffice)
	if err != nil {
		c.tel.ReportBroken(report_client_closest_office, err, procedure)
		return nil, opError(op, err)
	}

	office, err := parseOptionalOffice(body)
	if err != nil {
		c.tel.ReportBroken(report_client_closest_office, err, procedure)
		return nil, &ParseError{Operation: op, Err: err}
	}
	return office, nil
}

// AppointmentDays returns the days with openings for a procedure at an office, in upstream order.
func (c *Client) AppointmentDays(ctx context.Context, office OfficeId, procedure ProcedureOfficeId) ([]AppointmentDay, error) {
	const op = "appointment days"

	err := c.session.ensureInit(ctx)
	if err != nil {
		return nil, opError(op, err)
	}

	req := c.transport().request(ctx).
		SetFormData(map[string]string{
			"valido":                    "true",
			"ruta":                      "oficina",
			"idCiudadanoCitaAnterior":   "",
			"idOficinaEdicion":          "",
			"idServicioEdicion":         "",
			"usaVariablesEdicion":       "",
			"esModificacion":            "",
			"origen":                    "",
			"idFamiliaCita":             "",
			"idOficina":                 office.String(),
			"idServicio":                procedure.String(),
			"idTipoDocumentoUsuarioAut": "",
			"numeroDocumento":           "",
		})
	body, err := c.transport().send(req, http.MethodPost, c.endpoints.officeAppointments)
	if err != nil {
		c.tel.ReportBroken(report_client_appointment_days, err, office, procedure)
		return nil, opError(op, err)
	}

	days, err := parseAppointmentDays(string(body), c.extractor)
	if err != nil {
		c.tel.ReportBroken(report_client_appointment_days, err, office, procedure)
		return nil, &ParseError{Operation: op, Err: err}
	}
	return days, nil
}

// SlotsForDay lazily yields the open slots of a day as Europe/Madrid instants. Nothing is
// requested until the sequence is iterated, each iteration requests the day afresh. Any failure
// is yielded as the last element with a zero time.
func (c *Client) SlotsForDay(ctx context.Context, procedure ProcedureOfficeId, day AppointmentDay) iter.Seq2[time.Time, error] {
	const op = "slots for day"

	return func(yield func(time.Time, error) bool) {
		groups, err := c.fetchDaySlots(ctx, procedure, day)
		if err != nil {
			yield(time.Time{}, err)
			return
		}

		loc := chrono.Madrid()
		for _, hour := range groups {
			for _, minute := range hour.Minutes {
				for _, slot := range minute.Slots {
					if !slot.Available {
						continue
					}
					instant, err := slot.instant(day, loc)
					if err != nil {
						c.tel.ReportBroken(report_client_slots_for_day, err, procedure, day)
						yield(time.Time{}, &ParseError{Operation: op, Err: err})
						return
					}
					if !yield(instant, nil) {
						return
					}
				}
			}
		}
	}
}

func (c *Client) fetchDaySlots(ctx context.Context, procedure ProcedureOfficeId, day AppointmentDay) ([]netHourGroup, error) {
	const op = "slots for day"

	err := c.session.ensureInit(ctx)
	if err != nil {
		return nil, opError(op, err)
	}

	req := c.transport().request(ctx).
		SetHeader("accept", "application/json").
		SetQueryParams(map[string]string{
			"idServicio":          procedure.String(),
			"fecha":               day.upstreamFormat(),
			"ultimoDia":           "false",
			"desplazamientoHoras": "0",
			"tipoAtencion":        "1",
			"_":                   cacheBuster(c.clock.Now()),
		})
	body, err := c.transport().send(req, http.MethodGet, c.endpoints.daySlots)
	if err != nil {
		c.tel.ReportBroken(report_client_slots_for_day, err, procedure, day)
		return nil, opError(op, err)
	}

	groups, err := parseDaySlots(body)
	if err != nil {
		c.tel.ReportBroken(report_client_slots_for_day, err, procedure, day)
		return nil, &ParseError{Operation: op, Err: err}
	}
	return groups, nil
}

// CollectSlots drains a slot sequence, stopping at the first error.
func CollectSlots(seq iter.Seq2[time.Time, error]) ([]time.Time, error) {
	var out []time.Time
	for slot, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, slot)
	}
	return out, nil
}

// ListOffices returns every office grouped as the office landing page lists them.
func (c *Client) ListOffices(ctx context.Context) ([]OfficeSummary, error) {
	const op = "list offices"

	err := c.session.ensureInit(ctx)
	if err != nil {
		return nil, opError(op, err)
	}

	body, err := c.transport().send(c.transport().request(ctx), http.MethodGet, c.endpoints.officeLanding)
	if err != nil {
		c.tel.ReportBroken(report_client_list_offices, err)
		return nil, opError(op, err)
	}

	options, err := parseOptionTree(body, selectOffices)
	if err != nil {
		c.tel.ReportBroken(report_client_list_offices, err)
		return nil, &ParseError{Operation: op, Err: err}
	}

	offices := make([]OfficeSummary, len(options))
	for i, o := range options {
		offices[i] = OfficeSummary{
			Id:    OfficeId(o.Id),
			Name:  o.Name,
			Group: o.Group,
		}
	}
	c.tel.ReportCount(report_client_list_offices, int64(len(offices)))
	return offices, nil
}

// ListProcedures returns every procedure with the category the procedure landing page puts it in.
func (c *Client) ListProcedures(ctx context.Context) ([]Procedure, error) {
	const op = "list procedures"

	err := c.session.ensureInit(ctx)
	if err != nil {
		return nil, opError(op, err)
	}

	body, err := c.transport().send(c.transport().request(ctx), http.MethodGet, c.endpoints.procedureLanding)
	if err != nil {
		c.tel.ReportBroken(report_client_list_procedures, err)
		return nil, opError(op, err)
	}

	options, err := parseOptionTree(body, selectProcedures)
	if err != nil {
		c.tel.ReportBroken(report_client_list_procedures, err)
		return nil, &ParseError{Operation: op, Err: err}
	}

	procedures := make([]Procedure, len(options))
	for i, o := range options {
		procedures[i] = Procedure{
			Id:       ProcedureId(o.Id),
			Name:     o.Name,
			Category: o.Group,
		}
	}
	c.tel.ReportCount(report_client_list_procedures, int64(len(procedures)))
	return procedures, nil
}

// OfficeDetail returns the full record of an office, nil if the upstream does not know it.
//
// Unlike every other operation this one does not wait for the session handshake, the upstream
// has been observed to serve it anonymously. If that stops being true the call fails or returns
// an error page, and a warning is reported when it runs before any handshake.
func (c *Client) OfficeDetail(ctx context.Context, office OfficeId) (*Office, error) {
	const op = "office detail"

	if !c.sessionInitialized() {
		c.tel.ReportWarning(report_client_office_detail_noinit, office)
	}

	req := c.transport().request(ctx).
		SetHeader("accept", "application/json").
		SetQueryParam("idOficina", office.String())
	body, err := c.transport().send(req, http.MethodGet, c.endpoints.officeInfo)
	if err != nil {
		c.tel.ReportBroken(report_client_office_detail, err, office)
		return nil, opError(op, err)
	}

	detail, err := parseOptionalOffice(body)
	if err != nil {
		c.tel.ReportBroken(report_client_office_detail, err, office)
		return nil, &ParseError{Operation: op, Err: err}
	}
	return detail, nil
}

func (c *Client) sessionInitialized() bool {
	return c.session.initialized.Load()
}
