package tracereader

import (
	"context"
	"errors"
	"io"

	"golang.org/x/sync/errgroup"
)

// Stream runs r's parsing loop on a background goroutine, sending each
// Record to the returned channel, and returns a wait function that
// blocks until parsing finishes (io.EOF) or an error or ctx cancellation
// occurs. This overlaps decompression/parsing with the single simulation
// goroutine draining the channel without violating spec §5's "one
// request in flight at a time": the channel itself is the serialization
// point, and Hierarchy.Dispatch is only ever called from the drainer.
func Stream(ctx context.Context, r *Reader, bufSize int) (<-chan Record, func() error) {
	out := make(chan Record, bufSize)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(out)
		for {
			rec, err := r.Next()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
			select {
			case out <- rec:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	return out, g.Wait
}
