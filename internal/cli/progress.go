package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"docqa/internal/domain"
)

// progressReporter renders ingestion events as a progress bar plus one
// status line per document.
type progressReporter struct {
	mu     sync.Mutex
	out    io.Writer
	barOut io.Writer
	bar    *progressbar.ProgressBar
	start  time.Time
	done   int
}

func newProgressReporter(out, barOut io.Writer) *progressReporter {
	return &progressReporter{out: out, barOut: barOut}
}

func (p *progressReporter) Observe(ev domain.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch ev.Stage {
	case domain.StageExtract:
		p.observeExtract(ev)
	case domain.StageIndex:
		if ev.Kind == domain.EventStageComplete {
			fmt.Fprintf(p.out, "📚 Stored %d chunks in the vector index\n", ev.Fragments)
		}
	}
}

func (p *progressReporter) observeExtract(ev domain.ProgressEvent) {
	if p.bar == nil && ev.Total > 0 {
		p.start = time.Now()
		p.bar = progressbar.NewOptions(ev.Total,
			progressbar.OptionSetWriter(p.barOut),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowBytes(false),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetDescription("[cyan]Parsing[reset]"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(p.barOut)
			}),
		)
	}

	switch ev.Kind {
	case domain.EventStarted:
		if p.bar != nil {
			p.bar.Describe(fmt.Sprintf("[cyan]Parsing[reset] %s", ev.Document))
		}
		return
	case domain.EventSucceeded:
		p.line(fmt.Sprintf("✅ Parsed %s → %d chunks", ev.Document, ev.Fragments))
	case domain.EventEmpty:
		p.line(fmt.Sprintf("⚠️ %s: No content extracted", ev.Document))
	case domain.EventFailed:
		p.line(fmt.Sprintf("❌ %s: Failed to process", ev.Document))
	case domain.EventStageComplete:
		return
	}

	p.done++
	if p.bar == nil {
		return
	}
	_ = p.bar.Set(p.done)
	if p.done < ev.Total {
		elapsed := time.Since(p.start)
		rate := float64(p.done) / elapsed.Seconds()
		if rate > 0 {
			eta := time.Duration(float64(ev.Total-p.done)/rate) * time.Second
			p.bar.Describe(fmt.Sprintf("[cyan]Parsing[reset] ETA: %s", formatDuration(eta)))
		}
	}
}

// line prints above the bar without tearing it.
func (p *progressReporter) line(s string) {
	if p.bar != nil {
		_ = p.bar.Clear()
	}
	fmt.Fprintln(p.out, s)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
