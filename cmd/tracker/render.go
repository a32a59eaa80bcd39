package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/zoransi/split-laundry-express/internal/domain"
	"github.com/zoransi/split-laundry-express/internal/livefeed"
	"github.com/zoransi/split-laundry-express/internal/tracking"
)

var (
	colorGood  = lipgloss.Color("#A6E3A1")
	colorWarn  = lipgloss.Color("#F9E2AF")
	colorBad   = lipgloss.Color("#F38BA8")
	colorMuted = lipgloss.Color("#6C7086")
	colorTitle = lipgloss.Color("#7C3AED")
)

type styles struct {
	title   lipgloss.Style
	muted   lipgloss.Style
	good    lipgloss.Style
	warn    lipgloss.Style
	bad     lipgloss.Style
	banner  lipgloss.Style
	section lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:  lipgloss.NewStyle().Bold(true).Foreground(colorTitle),
		muted:  lipgloss.NewStyle().Foreground(colorMuted),
		good:   lipgloss.NewStyle().Foreground(colorGood),
		warn:   lipgloss.NewStyle().Foreground(colorWarn),
		bad:    lipgloss.NewStyle().Foreground(colorBad),
		banner: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorMuted).Padding(0, 1),
		section: lipgloss.NewStyle().
			MarginTop(1),
	}
}

// screen redraws the whole state on every update.
type screen struct {
	mu     sync.Mutex
	out    io.Writer
	styles styles
	last   string
}

func newScreen(out io.Writer) *screen {
	return &screen{out: out, styles: newStyles()}
}

func (s *screen) draw(state tracking.State) {
	frame := render(s.styles, state)

	s.mu.Lock()
	defer s.mu.Unlock()

	if frame == s.last {
		return
	}
	s.last = frame
	fmt.Fprint(s.out, "\033[H\033[2J", frame, "\n")
}

func render(st styles, state tracking.State) string {
	var b strings.Builder

	b.WriteString(st.banner.Render(renderConnection(st, state.Connection)))

	if len(state.Orders) == 0 {
		b.WriteString("\n")
		b.WriteString(st.muted.Render("no orders tracked"))
		return b.String()
	}

	for _, o := range state.Orders {
		b.WriteString("\n")
		b.WriteString(st.section.Render(renderOrder(st, o)))
	}
	return b.String()
}

func renderConnection(st styles, snap livefeed.Snapshot) string {
	var lines []string

	state := string(snap.State)
	switch snap.State {
	case livefeed.StateConnected:
		state = st.good.Render(state)
	case livefeed.StateConnecting, livefeed.StateReconnecting:
		state = st.warn.Render(state)
		if snap.Attempt > 0 {
			state += st.muted.Render(fmt.Sprintf(" (attempt %d/%d)", snap.Attempt, snap.MaxAttempts))
		}
	default:
		state = st.bad.Render(state)
	}
	lines = append(lines, st.title.Render("Live updates")+"  "+state+"  "+renderQuality(st, snap.Quality))

	if snap.ReconnectSucceeded {
		lines = append(lines, st.good.Render("Reconnected"))
	}

	if snap.Reason != nil {
		lines = append(lines, st.bad.Render(snap.Reason.Message))
		if snap.Reason.Suggestion != "" {
			lines = append(lines, st.muted.Render(snap.Reason.Suggestion))
		}
	}

	if d := snap.Diagnostics; !d.LastUpdated.IsZero() {
		lines = append(lines, st.muted.Render(fmt.Sprintf(
			"latency %s  jitter %s  loss %.0f%%",
			d.AverageLatency.Round(time.Millisecond),
			d.Jitter.Round(time.Millisecond),
			d.PacketLoss,
		)))
	}

	return strings.Join(lines, "\n")
}

func renderQuality(st styles, q livefeed.Quality) string {
	label := "quality: " + string(q)
	switch q {
	case livefeed.QualityGood:
		return st.good.Render(label)
	case livefeed.QualityFair:
		return st.warn.Render(label)
	case livefeed.QualityPoor, livefeed.QualityDisconnected:
		return st.bad.Render(label)
	default:
		return st.muted.Render(label)
	}
}

func renderOrder(st styles, o tracking.OrderView) string {
	var lines []string

	status := "loading"
	if o.Status != "" {
		status = string(o.Status)
	}
	header := st.title.Render("Order "+o.OrderID) + "  " + renderStatus(st, o.Status, status)
	if o.Order != nil && o.Order.TotalAmount > 0 {
		header += st.muted.Render(fmt.Sprintf("  %.2f", o.Order.TotalAmount))
	}
	lines = append(lines, header)

	for _, e := range o.Timeline {
		lines = append(lines, fmt.Sprintf("  %s  %s",
			st.muted.Render(e.At.Local().Format("15:04:05")),
			e.Message,
		))
	}

	if o.FetchError != "" {
		lines = append(lines, st.bad.Render("  could not refresh: "+o.FetchError))
	}

	return strings.Join(lines, "\n")
}

func renderStatus(st styles, s domain.OrderStatus, label string) string {
	switch s {
	case domain.OrderStatusDelivered, domain.OrderStatusReady:
		return st.good.Render(label)
	case domain.OrderStatusCancelled:
		return st.bad.Render(label)
	case "":
		return st.muted.Render(label)
	default:
		return st.warn.Render(label)
	}
}
