package notify

import (
	"context"
	"fmt"

	"github.com/mpeters88/chatdesk/pkg/logging"
)

// BookingConfirmation is the input for the post-booking email.
type BookingConfirmation struct {
	To            string
	ToName        string
	OrgName       string
	Date          string
	Time          string
	SchedulingURL string
}

// BookingNotifier emails the visitor after a confirmed booking. A nil
// notifier is a valid no-op so the booking path never depends on email being
// configured.
type BookingNotifier struct {
	sender EmailSender
	logger *logging.Logger
}

func NewBookingNotifier(sender EmailSender, logger *logging.Logger) *BookingNotifier {
	if sender == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingNotifier{sender: sender, logger: logger}
}

// SendConfirmation sends the booking confirmation. Failures are logged and
// swallowed; the booking is already confirmed and must not unwind over a
// notification problem.
func (n *BookingNotifier) SendConfirmation(ctx context.Context, c BookingConfirmation) {
	if n == nil || n.sender == nil {
		return
	}

	orgName := c.OrgName
	if orgName == "" {
		orgName = "our team"
	}
	body := fmt.Sprintf(
		"Your appointment with %s is confirmed for %s at %s.\n\nFinish or manage your booking here: %s\n",
		orgName, c.Date, c.Time, c.SchedulingURL,
	)
	msg := EmailMessage{
		To:      c.To,
		ToName:  c.ToName,
		Subject: fmt.Sprintf("Appointment confirmed: %s at %s", c.Date, c.Time),
		Body:    body,
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		n.logger.Warn("booking confirmation email failed", "to", c.To, "error", err)
	}
}
