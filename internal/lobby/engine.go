// internal/lobby/engine.go
package lobby

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cncnet/lobbyrelay/internal/announce"
)

// ErrRenderingNotFound is returned by a Renderer when the rendering referenced
// by a handle no longer exists at the external service, e.g. the listing
// message was deleted by a moderator. The engine recovers by re-rendering.
var ErrRenderingNotFound = errors.New("rendering not found")

// Renderer is the external surface that displays lobby listings. The Discord
// implementation lives in internal/discord; tests substitute a fake.
//
// Create and Edit may fail transiently; such failures are surfaced on the
// returned Effect and retried naturally on the next broadcast or sweep.
type Renderer interface {
	// Create posts a new listing for the lobby and returns its handle.
	Create(ctx context.Context, host string, rec *announce.Record) (Handle, error)

	// Edit updates the listing identified by h in place. It returns
	// ErrRenderingNotFound if the listing no longer exists.
	Edit(ctx context.Context, h Handle, host string, rec *announce.Record) error

	// Abandon marks the listing as closed/abandoned, editing in place so the
	// visible history is preserved.
	Abandon(ctx context.Context, h Handle, host string, rec *announce.Record) error

	// Recover searches the external service for an existing live listing for
	// host, used to re-acquire a handle after Edit reports not-found.
	Recover(ctx context.Context, host string) (Handle, bool)
}

// EffectKind identifies the externally visible outcome of processing one
// announcement or sweeping one entry.
type EffectKind int

const (
	EffectNoOp EffectKind = iota
	EffectRendered
	EffectEdited
	EffectAbandoned
	EffectRemoved
)

func (k EffectKind) String() string {
	switch k {
	case EffectNoOp:
		return "noop"
	case EffectRendered:
		return "rendered"
	case EffectEdited:
		return "edited"
	case EffectAbandoned:
		return "abandoned"
	case EffectRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Effect is the result of reconciling one announcement. Err carries a
// transient rendering failure; the registry mutation still took place.
type Effect struct {
	Kind   EffectKind
	Handle Handle
	Err    error
}

// Announcement is one raw GAME broadcast queued for processing, tagged with an
// event ID for log correlation.
type Announcement struct {
	ID        uuid.UUID
	Announcer string
	Channel   string
	Raw       string
}

// Engine reconciles parsed lobby announcements against the Registry and
// drives rendering side effects. A single Engine goroutine (Run) consumes the
// announcement queue and the sweep ticker, which serializes all registry
// mutations and preserves per-announcer arrival order.
type Engine struct {
	reg      *Registry
	renderer Renderer
	game     *announce.GameDescriptor
	log      *logrus.Logger

	clock      func() time.Time
	stale      time.Duration
	sweepEvery time.Duration

	// OnCount, if set, is called with the live lobby count after every
	// announcement and sweep. Used to keep the bot presence line current.
	OnCount func(n int)
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine's time source.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithStaleThreshold sets the age beyond which an unrefreshed lobby is
// considered abandoned.
func WithStaleThreshold(d time.Duration) Option {
	return func(e *Engine) { e.stale = d }
}

// WithSweepInterval sets the period between expiry sweeps.
func WithSweepInterval(d time.Duration) Option {
	return func(e *Engine) { e.sweepEvery = d }
}

// DefaultStaleThreshold matches the broadcast cadence of the hosting clients:
// a lobby that has not re-announced within this window is gone.
const DefaultStaleThreshold = 30 * time.Second

// NewEngine constructs an Engine over reg and renderer. game is attached to
// every parsed record.
func NewEngine(reg *Registry, renderer Renderer, game *announce.GameDescriptor, log *logrus.Logger, opts ...Option) *Engine {
	e := &Engine{
		reg:        reg,
		renderer:   renderer,
		game:       game,
		log:        log,
		clock:      time.Now,
		stale:      DefaultStaleThreshold,
		sweepEvery: DefaultStaleThreshold,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process parses one raw announcement and reconciles it. Malformed payloads
// are logged and dropped without touching the registry.
func (e *Engine) Process(ctx context.Context, a Announcement) Effect {
	rec, err := announce.Parse(a.Raw, e.game, e.clock())
	if err != nil {
		e.log.WithFields(logrus.Fields{
			"event":     a.ID,
			"announcer": a.Announcer,
			"error":     err,
		}).Warn("Dropping malformed game announcement")
		return Effect{Kind: EffectNoOp}
	}

	effect := e.reconcile(ctx, a.Announcer, rec)
	e.log.WithFields(logrus.Fields{
		"event":     a.ID,
		"announcer": a.Announcer,
		"lobby":     rec.DisplayName,
		"channel":   a.Channel,
		"effect":    effect.Kind.String(),
	}).Info("Processed game announcement")
	return effect
}

// reconcile drives the create/update/close transitions for one parsed record.
func (e *Engine) reconcile(ctx context.Context, announcer string, rec *announce.Record) Effect {
	if rec.Closed {
		return e.close(ctx, announcer, rec)
	}

	prev, existed := e.reg.Upsert(announcer, rec)
	if existed && prev.Handle != "" {
		return e.edit(ctx, announcer, prev.Handle, rec)
	}
	return e.render(ctx, announcer, rec)
}

// close removes the announcer's entry, marking the rendering abandoned first.
// Closing an unknown announcer is a no-op, which makes close idempotent.
func (e *Engine) close(ctx context.Context, announcer string, rec *announce.Record) Effect {
	prev, existed := e.reg.Lookup(announcer)
	if !existed {
		return Effect{Kind: EffectNoOp}
	}
	var effErr error
	if prev.Handle != "" {
		if err := e.renderer.Abandon(ctx, prev.Handle, announcer, rec); err != nil {
			// The entry is still removed; a failed edit must not leak
			// closed lobbies into the listing forever.
			e.log.WithFields(logrus.Fields{
				"announcer": announcer,
				"handle":    prev.Handle,
				"error":     err,
			}).Warn("Failed to mark rendering abandoned on close")
			effErr = err
		}
	}
	e.reg.Remove(announcer)
	return Effect{Kind: EffectAbandoned, Handle: prev.Handle, Err: effErr}
}

// edit updates the existing rendering in place, falling back to recovering or
// recreating the rendering when it no longer exists externally.
func (e *Engine) edit(ctx context.Context, announcer string, h Handle, rec *announce.Record) Effect {
	err := e.renderer.Edit(ctx, h, announcer, rec)
	if err == nil {
		return Effect{Kind: EffectEdited, Handle: h}
	}
	if !errors.Is(err, ErrRenderingNotFound) {
		return Effect{Kind: EffectEdited, Handle: h, Err: err}
	}

	// The listing vanished externally. Try to re-acquire an existing one
	// before posting a fresh rendering.
	if found, ok := e.renderer.Recover(ctx, announcer); ok {
		e.attach(announcer, found)
		if err := e.renderer.Edit(ctx, found, announcer, rec); err != nil {
			return Effect{Kind: EffectEdited, Handle: found, Err: err}
		}
		return Effect{Kind: EffectEdited, Handle: found}
	}

	fresh, err := e.renderer.Create(ctx, announcer, rec)
	if err != nil {
		return Effect{Kind: EffectEdited, Handle: "", Err: err}
	}
	e.attach(announcer, fresh)
	return Effect{Kind: EffectEdited, Handle: fresh}
}

// render creates a fresh rendering for a newly seen lobby and attaches its
// handle. The registry entry was already inserted by the caller.
func (e *Engine) render(ctx context.Context, announcer string, rec *announce.Record) Effect {
	h, err := e.renderer.Create(ctx, announcer, rec)
	if err != nil {
		// The entry stays without a handle; the host's next broadcast
		// retries the rendering.
		return Effect{Kind: EffectRendered, Err: err}
	}
	e.attach(announcer, h)
	return Effect{Kind: EffectRendered, Handle: h}
}

// attach sets the rendering handle, logging a consistency warning when the
// entry vanished between the mutation and the rendering completing.
func (e *Engine) attach(announcer string, h Handle) {
	if !e.reg.AttachHandle(announcer, h) {
		e.log.WithFields(logrus.Fields{
			"announcer": announcer,
			"handle":    h,
		}).Warn("Rendering attached to vanished registry entry")
	}
}

// Sweep performs one expiry pass: every entry whose record is older than the
// staleness threshold has its rendering marked abandoned (best effort) and is
// removed from the registry. Rendering failures never prevent removal, and a
// failure on one entry does not abort the rest of the pass. Returns the number
// of entries removed.
func (e *Engine) Sweep(ctx context.Context) int {
	now := e.clock()
	removed := 0
	for _, ke := range e.reg.Entries() {
		age := now.Sub(ke.Entry.Record.Timestamp)
		if age <= e.stale {
			continue
		}
		if ke.Entry.Handle != "" {
			if err := e.renderer.Abandon(ctx, ke.Entry.Handle, ke.Announcer, ke.Entry.Record); err != nil {
				e.log.WithFields(logrus.Fields{
					"announcer": ke.Announcer,
					"handle":    ke.Entry.Handle,
					"age":       age,
					"error":     err,
				}).Warn("Failed to mark stale rendering abandoned")
			}
		}
		e.reg.Remove(ke.Announcer)
		removed++
		e.log.WithFields(logrus.Fields{
			"announcer": ke.Announcer,
			"lobby":     ke.Entry.Record.DisplayName,
			"age":       age,
			"effect":    EffectRemoved.String(),
		}).Info("Expired stale lobby")
	}
	return removed
}

// Run consumes announcements from in and runs the expiry sweeper until ctx is
// canceled or in is closed. All registry mutations happen on this goroutine,
// so two broadcasts from the same host can never be reordered.
func (e *Engine) Run(ctx context.Context, in <-chan Announcement) {
	ticker := time.NewTicker(e.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case a, ok := <-in:
			if !ok {
				return
			}
			e.Process(ctx, a)
			e.notifyCount()
		case <-ticker.C:
			if n := e.Sweep(ctx); n > 0 {
				e.notifyCount()
			}
		}
	}
}

func (e *Engine) notifyCount() {
	if e.OnCount != nil {
		e.OnCount(e.reg.Len())
	}
}
