package chatsync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vovakirdan/wirechat-poll/internal/core"
)

type opTag struct {
	epoch int
	room  string
}

func (o *Orchestrator) blocked(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range o.denylist {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func (o *Orchestrator) submit(text string) {
	text = strings.TrimSpace(text)
	if text == "" || o.room == "" {
		return
	}
	if o.blocked(text) {
		o.metrics.post(postBlocked)
		o.addNotice(core.NoticeError, noticeBlocked)
		o.emit(core.Event{Kind: core.EventDraftRestored, Text: text, Room: o.room})
		o.emitView(false)
		return
	}

	// a resend replaces the failed copy
	o.store.DiscardFailed(o.room, text)
	tempID := o.store.AddOptimistic(o.room, core.Draft{Sender: o.sess.Username, Text: text})
	o.emitView(true)

	tag := opTag{epoch: o.epoch, room: o.room}
	sess := o.sess
	o.spawn(o.sessCtx, func(ctx context.Context) func() {
		res, err := o.backend.PostMessage(ctx, sess, tag.room, text)
		return func() { o.applyPost(tag, tempID, text, res, err) }
	})
}

func (o *Orchestrator) applyPost(tag opTag, tempID, text string, res core.PostResult, err error) {
	if tag.epoch != o.epoch {
		return
	}

	if err != nil {
		o.metrics.post(postFailed)
		if errors.Is(err, core.ErrSessionExpired) {
			o.expire(err)
			return
		}
		o.store.MarkFailed(tempID)
		o.log.Warn().Err(err).Str("room", tag.room).Msg("post failed")
		if tag.room == o.room {
			o.addNotice(core.NoticeError, fmt.Sprintf("Send Error: %s.", strings.TrimSuffix(err.Error(), ".")))
			o.emit(core.Event{Kind: core.EventDraftRestored, Text: text, Room: tag.room})
			o.emitView(false)
		}
		return
	}

	o.store.MarkConfirmed(tempID)
	if res.Censored {
		o.store.MarkModerated(tempID)
		o.metrics.post(postCensored)
	} else {
		o.metrics.post(postOK)
	}
	if tag.room != o.room {
		return
	}
	if res.Censored {
		o.addNotice(core.NoticeInfo, noticeModerated)
		o.emitView(false)
	}
	o.followNext = true
	o.fetch()
}

func (o *Orchestrator) deleteMessage(id string) {
	if o.sess.Guest() {
		o.addNotice(core.NoticeError, "Guests cannot delete messages.")
		o.emitView(false)
		return
	}
	msg, ok := o.store.Lookup(o.room, id)
	if !ok || msg.Local {
		o.addNotice(core.NoticeError, "Message not found.")
		o.emitView(false)
		return
	}
	if !strings.EqualFold(msg.Sender, o.sess.Username) {
		o.addNotice(core.NoticeError, "You can only delete your own messages.")
		o.emitView(false)
		return
	}

	tag := opTag{epoch: o.epoch, room: o.room}
	token := o.sess.Token
	prompt := fmt.Sprintf(promptDelete, msg.Text)
	o.spawn(o.sessCtx, func(ctx context.Context) func() {
		if !o.confirm.Confirm(ctx, prompt) {
			return func() { o.log.Debug().Str("id", id).Msg("delete cancelled") }
		}
		err := o.backend.DeleteMessage(ctx, token, tag.room, id)
		return func() { o.applyDelete(tag, id, err) }
	})
}

// applyDelete removes the message only once the backend acknowledged it.
func (o *Orchestrator) applyDelete(tag opTag, id string, err error) {
	if tag.epoch != o.epoch {
		return
	}
	if err != nil {
		o.log.Warn().Err(err).Str("id", id).Msg("delete failed")
		o.handleErr(tag.room, "Error deleting message: ", err)
		return
	}
	o.store.Remove(tag.room, id)
	if tag.room == o.room {
		o.addNotice(core.NoticeSuccess, noticeDeleted)
		o.emitView(false)
	}
}
