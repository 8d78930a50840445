package session

import (
	"context"
	"sync"
)

// Prompter answers the interactive effects of a session.
type Prompter interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
	// Password returns ok=false when the user cancelled the challenge.
	Password(ctx context.Context) (password string, ok bool, err error)
}

// Controller owns a session State for hosts without their own event loop.
// Reduction happens under the lock; effects run outside it, so a chat
// turn and a pane refresh may be in flight at the same time.
type Controller struct {
	mu       sync.Mutex
	state    State
	exec     *Executor
	prompter Prompter
}

func NewController(initial State, exec *Executor, prompter Prompter) *Controller {
	return &Controller{state: initial, exec: exec, prompter: prompter}
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Dispatch applies ev and every event its effects settle into, and
// returns the notices raised on the way.
func (c *Controller) Dispatch(ctx context.Context, ev Event) []Notice {
	var notices []Notice
	queue := []Event{ev}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		c.mu.Lock()
		var effects []Effect
		c.state, effects = Reduce(c.state, next)
		c.mu.Unlock()

		for _, eff := range effects {
			switch eff := eff.(type) {
			case Notify:
				notices = append(notices, eff.Notice)
			case AskConfirmation:
				queue = append(queue, ConfirmationAnswered{Yes: c.confirm(ctx, eff.Prompt)})
			case AskPassword:
				queue = append(queue, c.password(ctx))
			default:
				if settled := c.exec.Run(ctx, eff); settled != nil {
					queue = append(queue, settled)
				}
			}
		}
	}
	return notices
}

func (c *Controller) confirm(ctx context.Context, prompt string) bool {
	if c.prompter == nil {
		return false
	}
	yes, err := c.prompter.Confirm(ctx, prompt)
	if err != nil {
		c.exec.logFailure("confirmation prompt failed", err)
		return false
	}
	return yes
}

func (c *Controller) password(ctx context.Context) Event {
	if c.prompter == nil {
		return PasswordCancelled{}
	}
	pw, ok, err := c.prompter.Password(ctx)
	if err != nil {
		c.exec.logFailure("password prompt failed", err)
		return PasswordCancelled{}
	}
	if !ok {
		return PasswordCancelled{}
	}
	return PasswordSubmitted{Password: pw}
}
