package chatsync

import (
	"context"
	"fmt"

	"github.com/vovakirdan/wirechat-poll/internal/core"
)

// resetGeneration invalidates every fetch issued for the previous
// subscription.
func (o *Orchestrator) resetGeneration() {
	o.genCancel()
	o.gen++
	o.genCtx, o.genCancel = context.WithCancel(o.sessCtx)
	o.inflight = 0
	o.followNext = false
}

// switchTo makes room the active room: the old subscription stops before the
// view resets, and the new one starts after the first fetch is issued.
func (o *Orchestrator) switchTo(room string) {
	if !o.state.Authenticated() {
		return
	}
	if room == o.room && o.sub.Active() {
		return
	}

	o.sub.Stop()
	o.resetGeneration()

	prev := o.room
	o.room = room
	o.store.ResetView(room)
	o.notices = nil
	o.addNotice(core.NoticeSuccess, fmt.Sprintf("Joined #%s as %s.", room, o.sess.Username))
	o.log.Info().Str("from", prev).Str("to", room).Str("user", o.sess.Username).Msg("switched room")

	if o.sess.Guest() {
		if !core.ContainsRoom(o.rooms, room) {
			o.rooms = append(o.rooms, room)
		}
	} else if err := o.sessions.RememberRoom(o.ctx, room); err != nil {
		o.log.Warn().Err(err).Str("room", room).Msg("failed to remember room")
	}

	o.emitRooms()
	o.emitView(true)
	o.fetch()

	if err := o.sub.Start(room, o.tickFunc(o.gen)); err != nil {
		o.log.Error().Err(err).Str("room", room).Msg("failed to start polling")
		o.setState(core.StateAuthenticatedIdle)
		return
	}
	o.setState(core.StateAuthenticatedPolling)
}

func (o *Orchestrator) createRoom(name string) {
	if o.sess.Guest() {
		o.addNotice(core.NoticeError, "Guests cannot create rooms.")
		o.emitView(false)
		return
	}
	slug, err := core.NormalizeRoomName(name)
	if err != nil {
		o.addNotice(core.NoticeError, err.Error())
		o.emitView(false)
		return
	}

	epoch, room, token := o.epoch, o.room, o.sess.Token
	o.spawn(o.sessCtx, func(ctx context.Context) func() {
		id, err := o.backend.CreateRoom(ctx, token, slug)
		return func() {
			if epoch != o.epoch {
				return
			}
			if err != nil {
				o.handleErr(room, "Error creating room: ", err)
				return
			}
			if id == "" {
				id = slug
			}
			o.log.Info().Str("room", id).Msg("room created")
			if !core.ContainsRoom(o.rooms, id) {
				o.rooms = append(o.rooms, id)
			}
			o.switchTo(id)
			o.refreshRooms()
		}
	})
}

// refreshRooms reloads the room list. Only the latest request is applied.
func (o *Orchestrator) refreshRooms() {
	if o.sess.Guest() {
		o.emitRooms()
		return
	}

	o.roomsSeq++
	seq, epoch, token := o.roomsSeq, o.epoch, o.sess.Token
	o.spawn(o.sessCtx, func(ctx context.Context) func() {
		rooms, err := o.backend.ListRooms(ctx, token)
		return func() {
			if epoch != o.epoch || seq != o.roomsSeq {
				return
			}
			if err != nil {
				o.handleErr(o.room, "Error loading rooms: ", err)
				return
			}
			o.rooms = core.WithDefaultRoom(rooms)
			o.emitRooms()
			if o.room != "" && !core.ContainsRoom(o.rooms, o.room) {
				o.log.Info().Str("room", o.room).Msg("active room no longer listed")
				o.switchTo(core.DefaultRoom)
			}
		}
	})
}
