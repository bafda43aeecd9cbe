package notifications

import (
	"context"
	"errors"

	"casebook/internal/assets"
)

// Channel receives registry changes and session errors. Implementations must
// not block the caller for long; slow transports queue internally.
type Channel interface {
	AssetAdded(ctx context.Context, asset assets.Descriptor) error
	AssetRemoved(ctx context.Context, id string) error
	Error(ctx context.Context, message string) error
}

// Nop discards every notification.
type Nop struct{}

func (Nop) AssetAdded(context.Context, assets.Descriptor) error { return nil }
func (Nop) AssetRemoved(context.Context, string) error          { return nil }
func (Nop) Error(context.Context, string) error                 { return nil }

type fanout []Channel

// Fanout delivers each notification to every non-nil channel in order and
// joins their errors. A failing channel does not stop delivery to the rest.
func Fanout(channels ...Channel) Channel {
	out := make(fanout, 0, len(channels))
	for _, ch := range channels {
		if ch != nil {
			out = append(out, ch)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

func (f fanout) AssetAdded(ctx context.Context, asset assets.Descriptor) error {
	var errs []error
	for _, ch := range f {
		errs = append(errs, ch.AssetAdded(ctx, asset.Clone()))
	}
	return errors.Join(errs...)
}

func (f fanout) AssetRemoved(ctx context.Context, id string) error {
	var errs []error
	for _, ch := range f {
		errs = append(errs, ch.AssetRemoved(ctx, id))
	}
	return errors.Join(errs...)
}

func (f fanout) Error(ctx context.Context, message string) error {
	var errs []error
	for _, ch := range f {
		errs = append(errs, ch.Error(ctx, message))
	}
	return errors.Join(errs...)
}
