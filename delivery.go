package reminder

import "context"

// Mailer is the external mail transport.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Notifier hands an in-app notification to the live notification hub, either
// in process or over the internal notify endpoint.
type Notifier interface {
	Notify(ctx context.Context, userID string, n Notification) error
}

// EmailDeliverer sends the reminder email for a task to its owner.
func EmailDeliverer(m Mailer) DeliverFunc {
	return func(ctx context.Context, t *Task, u *User) error {
		if u.Email == "" {
			return ErrNoRecipient
		}
		return m.Send(ctx, u.Email, EmailSubject, EmailBody(t))
	}
}

// InAppDeliverer routes the in-app notification for a task to its owner.
func InAppDeliverer(n Notifier) DeliverFunc {
	return func(ctx context.Context, t *Task, _ *User) error {
		return n.Notify(ctx, t.UserID, InAppNotification(t))
	}
}

// HubNotifier delivers notifications to a Hub in the same process. Having no
// live connections is not a failure: routing is best-effort.
type HubNotifier struct {
	Hub *Hub
}

// Notify routes n to every connection of userID.
func (h HubNotifier) Notify(ctx context.Context, userID string, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := h.Hub.Route(userID, n)
	return err
}
