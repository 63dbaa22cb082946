package chatsync

import (
	"context"
	"errors"

	"github.com/vovakirdan/wirechat-poll/internal/core"
)

// fetchTag identifies the context a fetch was issued in.
type fetchTag struct {
	room  string
	token string
	epoch int
	gen   int
	seq   uint64
}

// tickFunc is handed to the subscription. It never blocks the ticker.
func (o *Orchestrator) tickFunc(gen int) func(string) {
	return func(room string) {
		select {
		case o.ticks <- tick{room: room, gen: gen}:
		default:
			o.metrics.tickDropped()
		}
	}
}

func (o *Orchestrator) onTick(t tick) {
	if t.gen != o.gen || t.room != o.room || o.state != core.StateAuthenticatedPolling {
		return
	}
	if o.inflight > 0 {
		o.metrics.tickSkipped()
		o.log.Debug().Str("room", o.room).Msg("fetch in flight, skipping tick")
		return
	}
	o.fetch()
}

func (o *Orchestrator) fetch() {
	o.seq++
	tag := fetchTag{room: o.room, token: o.sess.Token, epoch: o.epoch, gen: o.gen, seq: o.seq}
	o.inflight++

	o.spawn(o.genCtx, func(ctx context.Context) func() {
		msgs, err := o.backend.ListMessages(ctx, tag.token, tag.room)
		return func() { o.applyFetch(tag, msgs, err) }
	})
}

func (o *Orchestrator) current(tag fetchTag) bool {
	return o.state.Authenticated() &&
		tag.epoch == o.epoch &&
		tag.gen == o.gen &&
		tag.room == o.room &&
		tag.token == o.sess.Token
}

// applyFetch applies a fetch result only if nothing changed since it was
// issued and nothing newer was applied.
func (o *Orchestrator) applyFetch(tag fetchTag, msgs []core.Message, err error) {
	if tag.epoch == o.epoch && tag.gen == o.gen && o.inflight > 0 {
		o.inflight--
	}
	if !o.current(tag) {
		o.metrics.fetch(fetchStale)
		o.log.Debug().Str("room", tag.room).Uint64("seq", tag.seq).Msg("discarding stale fetch")
		return
	}

	if err != nil {
		if errors.Is(err, core.ErrSessionExpired) {
			o.metrics.fetch(fetchExpired)
			o.expire(err)
			return
		}
		o.metrics.fetch(fetchError)
		o.log.Warn().Err(err).Str("room", tag.room).Msg("fetch failed")
		o.addNotice(core.NoticeError, "Could not load new messages: "+err.Error())
		o.emitView(false)
		return
	}

	if tag.seq <= o.applied {
		o.metrics.fetch(fetchOutdated)
		return
	}
	o.applied = tag.seq
	o.metrics.fetch(fetchApplied)

	o.store.ReplaceConfirmed(tag.room, msgs)
	follow := o.followNext
	o.followNext = false
	o.emitView(follow)
}
