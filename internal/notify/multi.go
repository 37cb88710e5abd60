package notify

import (
	"context"

	"go.uber.org/multierr"
)

type multiNotifier []Notifier

// Multi delivers each toast to all notifiers; errors are combined.
func Multi(notifiers ...Notifier) Notifier {
	return multiNotifier(notifiers)
}

func (m multiNotifier) Notify(ctx context.Context, toast Toast) error {
	var err error
	for _, n := range m {
		err = multierr.Append(err, n.Notify(ctx, toast))
	}
	return err
}
