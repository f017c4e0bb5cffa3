package mail

import (
	"context"

	reminder "github.com/ace-232/day-planner-app"
)

// LogMailer only logs messages. It is the transport for local runs without
// mail credentials.
type LogMailer struct {
	Logger reminder.Logger
}

func (m LogMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.Logger != nil {
		m.Logger.Infof("mail (log only): to=%s subject=%q body=%q", to, subject, body)
	}
	return nil
}
