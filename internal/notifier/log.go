package notifier

import (
	"context"
	"log"
	"strings"
)

// LogNotifier writes messages to the log. Used when Telegram is not configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (l *LogNotifier) Send(text string) error {
	log.Printf("[INFO] notify: %s", strings.ReplaceAll(stripTags(text), "\n", " | "))
	return nil
}

func (l *LogNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	return l.Send(text)
}

// stripTags removes the HTML markup used for Telegram.
func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>' && inTag:
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}
