package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dukex/phasetrack/pkg/metrics"
	"github.com/dukex/phasetrack/pkg/models"
	"github.com/dukex/phasetrack/pkg/stream"
)

var (
	colorLow = lipgloss.AdaptiveColor{Light: "#86b300", Dark: "#c2d94c"}
	colorMid = lipgloss.AdaptiveColor{Light: "#f2ae49", Dark: "#ffb454"}
	colorHi  = lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f07178"}

	codeStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"})
	riskStyles = map[models.RiskLevel]lipgloss.Style{
		models.RiskLow:    lipgloss.NewStyle().Foreground(colorLow),
		models.RiskMedium: lipgloss.NewStyle().Foreground(colorMid),
		models.RiskHigh:   lipgloss.NewStyle().Foreground(colorHi).Bold(true),
	}
)

// TimelineSource returns the current timeline of a reference.
type TimelineSource interface {
	Timeline(ctx context.Context, referenceID int64) (*models.Timeline, error)
}

// watcher re-fetches the timeline of every reference an event touches and prints
// metrics recomputed from it. With no explicit references it follows all of them.
type watcher struct {
	source TimelineSource
	out    io.Writer
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	tracked map[int64]bool
	follow  bool
}

func newWatcher(source TimelineSource, out io.Writer, logger *slog.Logger, references []int64) *watcher {
	w := &watcher{
		source:  source,
		out:     out,
		logger:  logger,
		now:     time.Now,
		tracked: make(map[int64]bool, len(references)),
		follow:  len(references) == 0,
	}

	for _, id := range references {
		w.tracked[id] = true
	}

	return w
}

// HandleEvent refreshes the reference the event is about.
func (w *watcher) HandleEvent(ctx context.Context, event models.ChangeEvent) {
	if event.Kind == models.ChangeHeartbeat {
		return
	}

	id, ok := referenceOf(event)
	if !ok {
		return
	}

	w.mu.Lock()
	if w.follow {
		w.tracked[id] = true
	}
	tracked := w.tracked[id]
	w.mu.Unlock()

	if !tracked {
		return
	}

	w.refresh(ctx, id, event.Type)
}

// RefreshAll re-reads every tracked reference; changes may have been missed while disconnected.
func (w *watcher) RefreshAll(ctx context.Context) {
	w.mu.Lock()
	ids := make([]int64, 0, len(w.tracked))
	for id := range w.tracked {
		ids = append(ids, id)
	}
	w.mu.Unlock()

	for _, id := range ids {
		w.refresh(ctx, id, "resync")
	}
}

func (w *watcher) refresh(ctx context.Context, id int64, reason string) {
	timeline, err := w.source.Timeline(ctx, id)
	if err != nil {
		if errors.Is(err, stream.ErrNotFound) {
			w.mu.Lock()
			delete(w.tracked, id)
			w.mu.Unlock()
		}

		w.logger.WarnContext(ctx, "Failed to refresh timeline", "reference_id", id, "error", err)

		return
	}

	_, _ = fmt.Fprintln(w.out, render(timeline, reason, w.now()))
}

// render prints one line per refresh. Metrics are recomputed at now so they reflect
// time elapsed since the server built the snapshot.
func render(timeline *models.Timeline, reason string, now time.Time) string {
	summary := metrics.Summarize(timeline.Phases, timeline.Stages, now)

	current := timeline.Reference.CurrentPhaseSlug()
	if current == "" {
		current = "done"
	}

	risk, ok := riskStyles[summary.RiskLevel]
	if !ok {
		risk = lipgloss.NewStyle()
	}

	return strings.Join([]string{
		codeStyle.Render(timeline.Reference.Code),
		current,
		fmt.Sprintf("%d%%", summary.CompletionPercentage),
		fmt.Sprintf("eff %.1f", summary.Efficiency),
		fmt.Sprintf("var %+.1f%%", summary.VariancePercentage),
		fmt.Sprintf("overdue %d", summary.OverduePhases),
		risk.Render("risk " + string(summary.RiskLevel)),
		mutedStyle.Render(reason),
	}, "  ")
}

func referenceOf(event models.ChangeEvent) (int64, bool) {
	if payload, ok := event.Payload.(map[string]any); ok {
		if raw, ok := payload["reference_id"].(float64); ok && raw > 0 {
			return int64(raw), true
		}
	}

	if !strings.HasPrefix(event.Type, "reference_") && !strings.HasPrefix(event.Type, "phase_") {
		return 0, false
	}

	id, err := strconv.ParseInt(event.EntityID, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}

	return id, true
}
