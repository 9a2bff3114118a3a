package email

import (
	"context"
	"fmt"
	"strings"
)

// CompositeSender fans one message out to several senders, collecting every
// failure rather than stopping at the first.
type CompositeSender struct {
	senders []Sender
}

func NewCompositeSender(senders ...Sender) *CompositeSender {
	return &CompositeSender{senders: senders}
}

// AddSender appends a sender; nil senders are ignored.
func (cs *CompositeSender) AddSender(sender Sender) {
	if sender != nil {
		cs.senders = append(cs.senders, sender)
	}
}

func (cs *CompositeSender) Send(ctx context.Context, to []string, kind, subject string, rawMessage []byte) error {
	if len(cs.senders) == 0 {
		return fmt.Errorf("no senders configured")
	}

	var failures []string
	for _, sender := range cs.senders {
		if err := sender.Send(ctx, to, kind, subject, rawMessage); err != nil {
			failures = append(failures, err.Error())
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("composite email send failed: [ %s ]", strings.Join(failures, "; "))
	}
	return nil
}
