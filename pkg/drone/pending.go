package drone

import (
	"context"

	"github.com/google/uuid"
)

// Pending is the outcome of one asynchronous command.
type Pending struct {
	ID      string // Request ID used in logs
	Command string

	done  chan struct{}
	reply string
	ok    bool
	err   error
}

func newPending(command string) *Pending {
	return &Pending{
		ID:      uuid.NewString(),
		Command: command,
		done:    make(chan struct{}),
	}
}

// Resolved returns a Pending that has already finished with the given
// outcome.
func Resolved(command, reply string, ok bool, err error) *Pending {
	p := newPending(command)
	p.resolve(reply, ok, err)
	return p
}

func failed(command string, err error) *Pending {
	return Resolved(command, "", false, err)
}

func (p *Pending) resolve(reply string, ok bool, err error) {
	p.reply, p.ok, p.err = reply, ok, err
	close(p.done)
}

// Done is closed once the command has finished.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the command finishes or ctx is done. ok is false when
// the drone did not reply in time.
func (p *Pending) Wait(ctx context.Context) (reply string, ok bool, err error) {
	select {
	case <-p.done:
		return p.reply, p.ok, p.err
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}

// Err returns the transport or contention error, nil while pending.
func (p *Pending) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}
