package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/librix/internal/events"
)

var (
	messageHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#56B6C2"))
	messageBodyStyle   = lipgloss.NewStyle().PaddingLeft(2)
)

// subscribeMessages prints user-facing messages from the event bus until the returned function is called.
func (r *Runner) subscribeMessages() (unsubscribe func()) {
	return r.bus.Subscribe(events.TopicShowMessage, func(e events.Event) {
		msg, ok := e.Data.(events.Message)
		if !ok {
			r.logger.Warn("unexpected message payload", "topic", e.Topic)
			return
		}
		r.writePlain("%s\n%s\n", messageHeaderStyle.Render(msg.Header), messageBodyStyle.Render(msg.Body))
	})
}
