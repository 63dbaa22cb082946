package linemode

import (
	"fmt"
	"io"

	"github.com/vovakirdan/wirechat-poll/internal/core"
)

const timeLayout = "15:04"

// printer writes each notice and confirmed message once.
type printer struct {
	out     io.Writer
	room    string
	notices map[string]struct{}
	seen    map[string]struct{}
	failed  map[string]struct{}
}

func newPrinter(out io.Writer) *printer {
	p := &printer{out: out}
	p.reset("")
	return p
}

func (p *printer) reset(room string) {
	p.room = room
	p.notices = make(map[string]struct{})
	p.seen = make(map[string]struct{})
	p.failed = make(map[string]struct{})
}

func (p *printer) apply(ev core.Event) {
	switch ev.Kind {
	case core.EventAuthFailed:
		fmt.Fprintf(p.out, "! %s\n", ev.Text)
	case core.EventView:
		p.view(ev.View)
	}
}

func (p *printer) view(v *core.View) {
	if v == nil {
		return
	}
	if v.Room != p.room {
		p.reset(v.Room)
	}

	for _, n := range v.Notices {
		if _, ok := p.notices[n.Text]; ok {
			continue
		}
		p.notices[n.Text] = struct{}{}
		prefix := "*"
		if n.Level == core.NoticeError {
			prefix = "!"
		}
		fmt.Fprintf(p.out, "%s %s\n", prefix, n.Text)
	}

	for _, m := range v.Messages {
		switch {
		case m.Local && m.State == core.StateFailed:
			if _, ok := p.failed[m.ID]; !ok {
				p.failed[m.ID] = struct{}{}
				fmt.Fprintf(p.out, "! not sent: %s\n", m.Text)
			}
		case m.Local:
		default:
			if _, ok := p.seen[m.ID]; ok {
				continue
			}
			p.seen[m.ID] = struct{}{}
			fmt.Fprintln(p.out, formatMessage(m))
		}
	}
}

func formatMessage(m core.Message) string {
	if m.Timestamp.IsZero() {
		return fmt.Sprintf("%s: %s", m.Sender, m.Text)
	}
	return fmt.Sprintf("[%s] %s: %s", m.Timestamp.Local().Format(timeLayout), m.Sender, m.Text)
}
