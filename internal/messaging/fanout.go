package messaging

import (
	"context"
	"errors"
)

type fanout []Publisher

// Fanout returns a Publisher that hands every event to all publishers. An
// event counts as published only when every publisher accepted it.
func Fanout(publishers ...Publisher) Publisher {
	if len(publishers) == 1 {
		return publishers[0]
	}
	return fanout(publishers)
}

func (f fanout) PublishEvent(ctx context.Context, event *Envelope) error {
	var errs []error
	for _, p := range f {
		if err := p.PublishEvent(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) Close() {
	for _, p := range f {
		p.Close()
	}
}
