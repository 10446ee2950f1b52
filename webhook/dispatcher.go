package webhook

import "context"

/* Dispatcher performs one delivery attempt of an event
 * A nil error means every target accepted it
 */
type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event) error
}

// DispatcherFunc adapts a function to Dispatcher
type DispatcherFunc func(ctx context.Context, ev Event) error

func (f DispatcherFunc) Dispatch(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

/* Notifier receives lifecycle callbacks
 * Implementations must not block delivery and must not fail it
 */
type Notifier interface {
	EventSent(ctx context.Context, ev Event)
	RetriesExhausted(ctx context.Context, ev Event)
}

type nopNotifier struct{}

func (nopNotifier) EventSent(context.Context, Event)        {}
func (nopNotifier) RetriesExhausted(context.Context, Event) {}
