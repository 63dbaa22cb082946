package tui

import (
	"fmt"
	"strings"

	"github.com/vovakirdan/wirechat-poll/internal/core"
)

const timeLayout = "15:04"

// renderLines draws notices followed by the room's messages. Messages are
// numbered from 1 so /delete can refer to them.
func renderLines(v *core.View, theme Theme) string {
	if v == nil {
		return theme.Info.Render("Login or register to continue. Type /help for commands.")
	}

	lines := make([]string, 0, len(v.Notices)+len(v.Messages))
	for _, n := range v.Notices {
		lines = append(lines, theme.notice(n.Level).Render(n.Text))
	}
	for i, m := range v.Messages {
		lines = append(lines, renderMessage(i+1, m, v.Username, theme))
	}
	return strings.Join(lines, "\n")
}

func renderMessage(n int, m core.Message, self string, theme Theme) string {
	sender := theme.Sender
	if strings.EqualFold(m.Sender, self) {
		sender = theme.Self
	}

	var b strings.Builder
	b.WriteString(theme.Meta.Render(fmt.Sprintf("%3d.", n)))
	b.WriteByte(' ')
	if !m.Timestamp.IsZero() {
		b.WriteString(theme.Meta.Render(m.Timestamp.Local().Format(timeLayout)))
		b.WriteByte(' ')
	}
	b.WriteString(sender.Render(m.Sender + ":"))
	b.WriteByte(' ')

	switch {
	case m.State == core.StateFailed:
		b.WriteString(theme.Failed.Render(m.Text + " (not sent)"))
	case m.Local && m.State == core.StateOptimistic:
		b.WriteString(theme.Pending.Render(m.Text + " (sending)"))
	default:
		b.WriteString(theme.Text.Render(m.Text))
	}
	return b.String()
}

// statusLine summarises the session for the bottom bar.
func statusLine(state core.State, v *core.View, rooms []string) string {
	if !state.Authenticated() {
		return state.String()
	}
	var b strings.Builder
	if v != nil && v.Room != "" {
		fmt.Fprintf(&b, "#%s as %s", v.Room, v.Username)
	}
	if len(rooms) > 0 {
		b.WriteString(" · rooms: ")
		b.WriteString(strings.Join(rooms, ", "))
	}
	return b.String()
}
