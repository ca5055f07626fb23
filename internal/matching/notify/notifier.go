// Package notify tells founders and downstream systems when an investor acts on a match.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"investor-matching/internal/common/logger"
	"investor-matching/internal/common/metrics"
	"investor-matching/internal/models"
)

const EventStatusChanged = "match.status_changed"

type EmailSender interface {
	SendText(ctx context.Context, to, subject, body string) (string, error)
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType, payload string) (string, error)
}

// StatusEvent is the payload published for every applied status change.
type StatusEvent struct {
	MatchID    string             `json:"matchId"`
	InvestorID string             `json:"investorId"`
	StartupID  string             `json:"startupId"`
	From       models.MatchStatus `json:"from"`
	To         models.MatchStatus `json:"to"`
	Score      float64            `json:"overallScore"`
	OccurredAt time.Time          `json:"occurredAt"`
}

// Notifier delivers status changes. Either channel may be nil. Delivery is best effort and never
// fails the caller.
type Notifier struct {
	email   EmailSender
	events  EventPublisher
	timeout time.Duration
	logger  logger.Logger
}

func New(email EmailSender, events EventPublisher, log logger.Logger) *Notifier {
	return &Notifier{
		email:   email,
		events:  events,
		timeout: 5 * time.Second,
		logger:  log.WithFields(map[string]interface{}{"component": "notify"}),
	}
}

// StatusChanged publishes the event and, for interested and contacted, emails the founder.
func (n *Notifier) StatusChanged(ctx context.Context, m *models.StartupMatch, previous models.MatchStatus, startup *models.Startup) {
	if n == nil || m == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	evt := StatusEvent{
		MatchID:    m.ID,
		InvestorID: m.InvestorID,
		StartupID:  m.StartupID,
		From:       previous,
		To:         m.Status,
		Score:      m.OverallScore,
		OccurredAt: m.UpdatedAt,
	}
	if n.events != nil {
		n.publish(ctx, evt)
	}

	if n.email == nil || startup == nil || strings.TrimSpace(startup.FounderEmail) == "" {
		return
	}
	subject, body, ok := founderMessage(m.Status, startup)
	if !ok {
		return
	}
	if _, err := n.email.SendText(ctx, startup.FounderEmail, subject, body); err != nil {
		metrics.NotificationsSent.WithLabelValues("email", "failed").Inc()
		n.logger.Warn("founder email failed", map[string]interface{}{
			"matchId":   m.ID,
			"startupId": m.StartupID,
			"error":     err.Error(),
		})
		return
	}
	metrics.NotificationsSent.WithLabelValues("email", "sent").Inc()
}

func (n *Notifier) publish(ctx context.Context, evt StatusEvent) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return
	}
	if _, err := n.events.PublishEvent(ctx, EventStatusChanged, string(payload)); err != nil {
		metrics.NotificationsSent.WithLabelValues("event", "failed").Inc()
		n.logger.Warn("status event publish failed", map[string]interface{}{
			"matchId": evt.MatchID,
			"error":   err.Error(),
		})
		return
	}
	metrics.NotificationsSent.WithLabelValues("event", "sent").Inc()
}

func founderMessage(status models.MatchStatus, s *models.Startup) (subject, body string, ok bool) {
	switch status {
	case models.MatchStatusInterested:
		subject = fmt.Sprintf("An investor is interested in %s", s.Name)
		body = fmt.Sprintf("Good news: an investor marked %s as interesting after reviewing your profile.\n\n"+
			"Keep your traction and team details current so they have what they need.", s.Name)
	case models.MatchStatusContacted:
		subject = fmt.Sprintf("An investor wants to talk to %s", s.Name)
		body = fmt.Sprintf("An investor has reached out about %s. Watch your inbox for their message.", s.Name)
	default:
		return "", "", false
	}
	return subject, body, true
}
