// Package mailer sends event emails to registrants in bulk, pacing
// deliveries so the upstream SMTP relay is not flooded.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/skillmint/regsync/internal/domain/registration"
	"github.com/skillmint/regsync/pkg/pool"
)

// ErrNoRecipients is returned when a bulk send targets an event with no
// registrations.
var ErrNoRecipients = errors.New("mailer: no recipients for event")

// Sender delivers one rendered message. Implementations live in the mail
// infrastructure package.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// RegistrationSource lists the recipients of a bulk send.
type RegistrationSource interface {
	FindByCourse(ctx context.Context, course string) ([]registration.EventRegistration, error)
}

// Report aggregates a bulk send. Failed holds the addresses that could not
// be delivered; a partial failure is a normal outcome, not an error.
type Report struct {
	Total  int      `json:"total"`
	Sent   int      `json:"sent"`
	Failed []string `json:"failed,omitempty"`
}

// Config carries the bulk-send tunables.
type Config struct {
	Concurrency int
	Delay       time.Duration
}

type Service struct {
	sender      Sender
	regs        RegistrationSource
	concurrency int
	delay       time.Duration
	logger      *logrus.Logger
}

func NewService(sender Sender, regs RegistrationSource, cfg Config, logger *logrus.Logger) *Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Service{
		sender:      sender,
		regs:        regs,
		concurrency: cfg.Concurrency,
		delay:       cfg.Delay,
		logger:      logger,
	}
}

// SendJoinLinks emails the event's join link to every registrant. Failures
// are collected per recipient and never abort the run.
func (s *Service) SendJoinLinks(ctx context.Context, eventName, joinURL string) (*Report, error) {
	regs, err := s.regs.FindByCourse(ctx, eventName)
	if err != nil {
		return nil, err
	}
	if len(regs) == 0 {
		return nil, ErrNoRecipients
	}

	subject := fmt.Sprintf("Your link to join %s", eventName)
	report := &Report{Total: len(regs)}

	var mu sync.Mutex
	pool.Run(ctx, len(regs), pool.Options{Limit: s.concurrency, Delay: s.delay}, func(ctx context.Context, i int) {
		reg := regs[i]
		body := renderJoinLink(&reg, eventName, joinURL)
		if err := s.sender.Send(ctx, reg.Email, subject, body); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"event":     eventName,
				"recipient": reg.Email,
			}).Error("Failed to send join link")
			mu.Lock()
			report.Failed = append(report.Failed, reg.Email)
			mu.Unlock()
			return
		}
		mu.Lock()
		report.Sent++
		mu.Unlock()
	})

	s.logger.WithFields(logrus.Fields{
		"event":  eventName,
		"total":  report.Total,
		"sent":   report.Sent,
		"failed": len(report.Failed),
	}).Info("Bulk join-link send finished")
	return report, nil
}

func renderJoinLink(reg *registration.EventRegistration, eventName, joinURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Hi %s,</p>", reg.Name)
	fmt.Fprintf(&b, "<p>Thanks for registering for <strong>%s</strong>.</p>", eventName)
	fmt.Fprintf(&b, `<p><a href="%s">Click here to join</a></p>`, joinURL)
	if v := reg.EventDetailString("startTime"); v != "" {
		fmt.Fprintf(&b, "<p>Starts: %s", v)
		if tz := reg.EventDetailString("timezone"); tz != "" {
			fmt.Fprintf(&b, " (%s)", tz)
		}
		b.WriteString("</p>")
	}
	if v := reg.EventDetailString("hostName"); v != "" {
		fmt.Fprintf(&b, "<p>Hosted by %s</p>", v)
	}
	b.WriteString("<p>See you there!</p>")
	return b.String()
}
