package platformtest

import (
	"context"
	"errors"
	"sync"

	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/platform"
)

var (
	ErrAlreadyAcknowledged = errors.New("interaction already acknowledged")
	ErrNotAcknowledged     = errors.New("interaction not acknowledged")
)

// Call is one recorded Responder call.
type Call struct {
	Method string
	Reply  platform.Reply
	Modal  platform.Modal
}

// Responder records responses and enforces the acknowledge-once rule.
type Responder struct {
	mu    sync.Mutex
	acked bool
	Calls []Call
}

func (r *Responder) initial(c Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.acked {
		return ErrAlreadyAcknowledged
	}
	r.acked = true
	r.Calls = append(r.Calls, c)
	return nil
}

func (r *Responder) after(c Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.acked {
		return ErrNotAcknowledged
	}
	r.Calls = append(r.Calls, c)
	return nil
}

func (r *Responder) Reply(ctx context.Context, reply platform.Reply) error {
	return r.initial(Call{Method: "Reply", Reply: reply})
}

func (r *Responder) Defer(ctx context.Context, ephemeral bool) error {
	return r.initial(Call{Method: "Defer", Reply: platform.Reply{Ephemeral: ephemeral}})
}

func (r *Responder) Update(ctx context.Context, reply platform.Reply) error {
	return r.initial(Call{Method: "Update", Reply: reply})
}

func (r *Responder) DeferUpdate(ctx context.Context) error {
	return r.initial(Call{Method: "DeferUpdate"})
}

func (r *Responder) Modal(ctx context.Context, m platform.Modal) error {
	return r.initial(Call{Method: "Modal", Modal: m})
}

func (r *Responder) Edit(ctx context.Context, reply platform.Reply) error {
	return r.after(Call{Method: "Edit", Reply: reply})
}

func (r *Responder) Followup(ctx context.Context, reply platform.Reply) error {
	return r.after(Call{Method: "Followup", Reply: reply})
}

// Methods lists the recorded call names in order.
func (r *Responder) Methods() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Calls))
	for i, c := range r.Calls {
		out[i] = c.Method
	}
	return out
}

// Last returns the most recent call.
func (r *Responder) Last() Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Calls) == 0 {
		return Call{}
	}
	return r.Calls[len(r.Calls)-1]
}

// Buttons collects every button across rows.
func Buttons(rows []platform.Row) []platform.Button {
	var out []platform.Button
	for _, row := range rows {
		for _, c := range row {
			if b, ok := c.(platform.Button); ok {
				out = append(out, b)
			}
		}
	}
	return out
}

// Selects collects every select menu across rows.
func Selects(rows []platform.Row) []platform.SelectMenu {
	var out []platform.SelectMenu
	for _, row := range rows {
		for _, c := range row {
			if s, ok := c.(platform.SelectMenu); ok {
				out = append(out, s)
			}
		}
	}
	return out
}
