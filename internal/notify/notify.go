// Package notify tells someone that appointments showed up.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/smtp"
	"strings"
	"time"

	"citaprevia/internal/components/assert"
	"citaprevia/internal/components/chrono"
	"citaprevia/internal/components/telemetry"
	"citaprevia/internal/finder"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("citaprevia/notify")

const (
	report_notify_email = "notify.email"
	report_notify_log   = "notify.log"
)

type Message struct {
	Subject string
	Body    string
}

type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Summarize renders a search result as a plain text message listing, per office, the days
// (and slots if they were fetched) that are open.
func Summarize(procedureName string, res finder.Result) Message {
	body := &strings.Builder{}
	offices := 0
	for _, o := range res.Offices {
		if len(o.Days) == 0 {
			continue
		}
		offices++
		fmt.Fprintf(body, "%s (%d):\n", o.Office.Name, o.Office.Id)
		for _, d := range o.Days {
			if d.Slots == nil {
				fmt.Fprintf(body, "  - %s\n", d.Day)
				continue
			}
			times := make([]string, len(d.Slots))
			for i, slot := range d.Slots {
				times[i] = slot.In(chrono.Madrid()).Format("15:04")
			}
			fmt.Fprintf(body, "  - %s: %s\n", d.Day, strings.Join(times, ", "))
		}
	}

	return Message{
		Subject: fmt.Sprintf("Citas disponibles: %s (%d oficinas)", procedureName, offices),
		Body:    body.String(),
	}
}

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
}

// EmailNotifier sends the message as a plain text email.
type EmailNotifier struct {
	config SmtpConfig
	to     []string
	tel    telemetry.API
	send   func(mail *email.Email, addr string, auth smtp.Auth) error
}

func NewEmailNotifier(config SmtpConfig, to []string, tel telemetry.API) EmailNotifier {
	assert.NotEmptyStr(config.Server)
	assert.NotNil(tel)
	return EmailNotifier{
		config: config,
		to:     to,
		tel:    tel,
		send: func(mail *email.Email, addr string, auth smtp.Auth) error {
			return mail.Send(addr, auth)
		},
	}
}

func (n EmailNotifier) Notify(ctx context.Context, msg Message) error {
	_, span := tracer.Start(ctx, "Notify:Email")
	defer span.End()

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Cita Previa <%s>", n.config.EmailAddress)
	mail.To = n.to
	mail.Subject = msg.Subject
	mail.Text = []byte(msg.Body)

	addr := fmt.Sprintf("%s:%d", n.config.Server, n.config.Port)
	err := n.send(mail, addr, smtp.PlainAuth("", n.config.EmailAddress, n.config.Password, n.config.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = n.send(mail, addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		n.tel.ReportBroken(report_notify_email, err, addr)
		return err
	}
	return nil
}

// LogNotifier writes the message to out, the CLI uses stdout.
type LogNotifier struct {
	out io.Writer
	tel telemetry.API
	now func() time.Time
}

func NewLogNotifier(out io.Writer, tel telemetry.API, clock chrono.API) LogNotifier {
	assert.NotNil(out)
	assert.NotNil(tel)
	assert.NotNil(clock)
	return LogNotifier{out: out, tel: tel, now: clock.Now}
}

func (n LogNotifier) Notify(ctx context.Context, msg Message) error {
	_, err := fmt.Fprintf(n.out, "[%s] %s\n%s", n.now().Format(time.DateTime), msg.Subject, msg.Body)
	if err != nil {
		n.tel.ReportBroken(report_notify_log, err)
		return err
	}
	n.tel.ReportDebug("notification written", "subject", msg.Subject)
	return nil
}

// Multi notifies through every notifier, it returns the first error after trying all of them.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, msg Message) error {
	var first error
	for _, n := range m {
		err := n.Notify(ctx, msg)
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}
