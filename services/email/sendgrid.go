package emailsvc

import (
	"fmt"
	"net/http"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sony/gobreaker/v2"

	"github.com/trezcool/njia/core"
	"github.com/trezcool/njia/services/metrics"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"

	// the breaker opens after this many consecutive failures
	breakerMaxFailures = 5
)

var errSendgridUnavailable = errors.New("sendgrid unavailable")

type sendgridService struct {
	conf       *core.Config
	logger     core.Logger
	host       string
	from       *sgmail.Email
	subjPrefix string
	breaker    *gobreaker.CircuitBreaker[int]
}

var _ core.EmailService = (*sendgridService)(nil)

func NewSendgridService(conf *core.Config, logger core.Logger) core.EmailService {
	return newSendgridService(conf, logger, sendgridHost)
}

func newSendgridService(conf *core.Config, logger core.Logger, host string) *sendgridService {
	svc := &sendgridService{
		conf:       conf,
		logger:     logger,
		host:       host,
		from:       sgmail.NewEmail(conf.DefaultFromEmail.Name, conf.DefaultFromEmail.Address),
		subjPrefix: "[" + conf.AppName + "] ",
	}
	svc.breaker = gobreaker.NewCircuitBreaker[int](gobreaker.Settings{
		Name:        "sendgrid",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(fmt.Sprintf("%s circuit breaker: %s -> %s", name, from, to))
		},
	})
	return svc
}

func (svc *sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		go func() {
			if err := msg.Render(svc.conf); err != nil {
				svc.logger.Error(fmt.Sprintf("rendering email: %v", err), err)
				metrics.RecordEmail("error")
				return
			}
			if !msg.HasRecipients() || !msg.HasContent() {
				metrics.RecordEmail("skipped")
				return
			}
			if err := svc.send(*msg); err != nil {
				svc.logger.Error(fmt.Sprintf("sending email: %v", err), err)
			}
		}()
	}
}

func (svc *sendgridService) prepare(msg core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject

	for _, to := range msg.To {
		p.AddTos(getSGEmail(to))
	}
	for _, cc := range msg.Cc {
		p.AddCCs(getSGEmail(cc))
	}
	for _, bcc := range msg.Bcc {
		p.AddBCCs(getSGEmail(bcc))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)

	m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	return m
}

func getSGEmail(addr mail.Address) *sgmail.Email {
	return sgmail.NewEmail(addr.Name, addr.Address)
}

// send posts the message through the circuit breaker.
// Server errors and transport errors count as breaker failures; client errors do not.
func (svc *sendgridService) send(msg core.EmailMessage) error {
	req := sendgrid.GetRequest(svc.conf.SendgridApiKey, sendgridEndpoint, svc.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(svc.prepare(msg))

	code, err := svc.breaker.Execute(func() (int, error) {
		res, err := sendgrid.API(req)
		if err != nil {
			return 0, err
		}
		if res.StatusCode >= http.StatusInternalServerError || res.StatusCode == http.StatusTooManyRequests {
			return res.StatusCode, errors.Wrapf(errSendgridUnavailable, "status %d: %s", res.StatusCode, res.Body)
		}
		return res.StatusCode, nil
	})
	switch {
	case err != nil:
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordEmail("rejected")
		} else {
			metrics.RecordEmail("error")
		}
		return err
	case code >= http.StatusBadRequest:
		metrics.RecordEmail("error")
		return errors.Errorf("sendgrid rejected the email: status %d", code)
	}
	metrics.RecordEmail("sent")
	return nil
}
