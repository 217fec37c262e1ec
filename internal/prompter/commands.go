package prompter

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// WriteModels lists the routing table with the default and selected models
// marked
func (p *Prompter) WriteModels(w io.Writer) error {
	cfg := p.GetConfig()
	router := p.client.Router()

	var sb strings.Builder
	sb.WriteString("Available models\n\n")
	for _, m := range router.Models() {
		var marks []string
		if strings.EqualFold(m.ID, cfg.OpenAI.DefaultModel) {
			marks = append(marks, "default")
		}
		if strings.EqualFold(m.ID, cfg.OpenAI.Model) {
			marks = append(marks, "selected")
		}

		fmt.Fprintf(&sb, "  %-28s %-10s", m.ID, m.Family)
		if m.ContextWindow > 0 {
			fmt.Fprintf(&sb, " %7d ctx", m.ContextWindow)
		}
		if len(marks) > 0 {
			fmt.Fprintf(&sb, " (%s)", strings.Join(marks, ", "))
		}
		sb.WriteString("\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteUsage reports the configured limits and the session's token usage
func (p *Prompter) WriteUsage(ctx context.Context, w io.Writer, session string) error {
	cfg := p.GetConfig()
	if session == "" {
		session = cfg.History.Session
	}
	limits := cfg.Limits

	var sb strings.Builder
	fmt.Fprintf(&sb, "Usage for session %s\n\n", session)

	sb.WriteString("Rate limits\n")
	if limits.RequestsPerMinute > 0 {
		fmt.Fprintf(&sb, "  Per minute: %d\n", limits.RequestsPerMinute)
	}
	if limits.RequestsPerHour > 0 {
		fmt.Fprintf(&sb, "  Per hour: %d\n", limits.RequestsPerHour)
	}
	if limits.RequestsPerMinute == 0 && limits.RequestsPerHour == 0 {
		sb.WriteString("  Unlimited\n")
	}

	sb.WriteString("\nToken limits\n")
	switch {
	case limits.TokensPerPeriod == 0:
		sb.WriteString("  Unlimited\n")
	case p.limiter == nil:
		fmt.Fprintf(&sb, "  %d per %dh (usage unavailable)\n", limits.TokensPerPeriod, limits.PeriodHours)
	default:
		used, err := p.limiter.Usage(ctx, session, limits.PeriodHours)
		if err != nil {
			return err
		}
		fmt.Fprintf(&sb, "  Used: %d / %d per %dh\n", used, limits.TokensPerPeriod, limits.PeriodHours)
		fmt.Fprintf(&sb, "  Remaining: %d\n", max(limits.TokensPerPeriod-used, 0))
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteHistory prints the session's messages in order
func (p *Prompter) WriteHistory(ctx context.Context, w io.Writer, session string) error {
	messages, err := p.History(ctx, session)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		_, err := io.WriteString(w, "No history\n")
		return err
	}

	var sb strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&sb, "[%s]\n%s\n\n", m.Role, m.Content)
	}
	_, err = io.WriteString(w, sb.String())
	return err
}

