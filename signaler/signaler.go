package signaler

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// WithInterrupt returns a copy of parent which is cancelled when the process
// receives an interrupt or terminate signal. onSignal, if not nil, is called
// with the signal before the context is cancelled
func WithInterrupt(parent context.Context, onSignal func(os.Signal)) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(c)
		select {
		case sig := <-c:
			if onSignal != nil {
				onSignal(sig)
			}
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
