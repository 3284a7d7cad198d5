// Package util carries the small ambient pieces every layer of the
// exporter needs: progress reporting, one-shot warnings, and
// human-readable size parsing.
package util

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/docker/go-units"
)

const (
	progressBoxInnerWidth = 92
	progressLines         = 4
	leftColumnWidth       = 52
	spaceBetweenColumns   = 1
	borderSidesWidth      = 2
)

const ansiEscapeStart = '\x1b'

// ProgressLogger renders a two-line, ANSI-redrawn status box showing
// rows copied, bytes written, and row groups flushed. --quiet skips
// creating one entirely.
type ProgressLogger struct {
	action   string
	interval time.Duration
	rows     atomic.Int64
	bytes    atomic.Int64
	groups   atomic.Int32
	done     chan struct{}
	once     sync.Once
}

// NewProgressLogger starts a background redraw loop at interval. Pass a
// zero interval to disable the redraw loop (useful in tests).
func NewProgressLogger(action string, interval time.Duration) *ProgressLogger {
	p := &ProgressLogger{action: action, interval: interval, done: make(chan struct{})}
	if interval > 0 {
		p.start()
	}
	return p
}

// AddRows, AddBytes and AddRowGroup are called from the row-group
// driver's hot path; all three are safe to call without external
// synchronization.
func (p *ProgressLogger) AddRows(n int64)      { p.rows.Add(n) }
func (p *ProgressLogger) AddBytes(n int64)     { p.bytes.Add(n) }
func (p *ProgressLogger) AddRowGroup(n int32)  { p.groups.Add(n) }

// Snapshot returns the current row, byte, and row-group counts.
func (p *ProgressLogger) Snapshot() (rows, bytes int64, groups int32) {
	return p.rows.Load(), p.bytes.Load(), p.groups.Load()
}

// Stop halts the redraw loop and leaves the final box on screen.
func (p *ProgressLogger) Stop() {
	p.once.Do(func() { close(p.done) })
}

func (p *ProgressLogger) start() {
	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		first := true
		prevRows, prevBytes := int64(0), int64(0)
		prevTime := time.Now()

		for {
			select {
			case <-p.done:
				return
			case <-ticker.C:
			}

			rows, bytes, groups := p.Snapshot()
			now := time.Now()
			elapsed := now.Sub(prevTime).Seconds()

			box := progressBox(rows, bytes, groups, progressRate(rows-prevRows, elapsed), progressRate(bytes-prevBytes, elapsed), p.action)
			if !first {
				fmt.Fprintf(os.Stdout, "\033[%dA", progressLines)
			}
			fmt.Fprint(os.Stdout, box)
			first = false

			prevRows, prevBytes, prevTime = rows, bytes, now
		}
	}()
}

func progressRate(delta int64, elapsedSeconds float64) float64 {
	if elapsedSeconds <= 0 {
		return 0
	}
	return float64(delta) / elapsedSeconds
}

func progressBox(rows, bytes int64, groups int32, rowsPerSec, bytesPerSec float64, action string) string {
	rightColumnWidth := progressBoxInnerWidth - leftColumnWidth - spaceBetweenColumns - borderSidesWidth

	leftTop := fmt.Sprintf("%s %d rows", action, rows)
	rightTop := fmt.Sprintf("Row groups: %d", groups)

	leftBottom := fmt.Sprintf("%s (%s/s, %.0f rows/s)", units.BytesSize(float64(bytes)), units.BytesSize(bytesPerSec), rowsPerSec)
	rightBottom := ""

	var b strings.Builder
	b.WriteString(progressBoxTopLine())
	writeRow(&b, leftTop, rightTop, leftColumnWidth, rightColumnWidth)
	writeRow(&b, leftBottom, rightBottom, leftColumnWidth, rightColumnWidth)
	b.WriteString(progressBoxBottomLine())
	return b.String()
}

func writeRow(b *strings.Builder, left, right string, leftWidth, rightWidth int) {
	left = padOrTrim(left, leftWidth)
	right = padOrTrim(right, rightWidth)
	b.WriteString("│ ")
	b.WriteString(left)
	b.WriteString(strings.Repeat(" ", leftWidth-visibleLen(left)))
	b.WriteString(" ")
	b.WriteString(right)
	b.WriteString(strings.Repeat(" ", rightWidth-visibleLen(right)))
	b.WriteString(" │\n")
}

func progressBoxTopLine() string {
	return "╭" + strings.Repeat("─", progressBoxInnerWidth) + "╮\n"
}

func progressBoxBottomLine() string {
	return "╰" + strings.Repeat("─", progressBoxInnerWidth) + "╯\n"
}

func padOrTrim(s string, width int) string {
	if width <= 0 {
		return s
	}
	visible := visibleLen(s)
	if visible > width {
		if width <= 3 {
			return s[:width]
		}
		return s[:width-3] + "..."
	}
	if visible < width {
		return s + strings.Repeat(" ", width-visible)
	}
	return s
}

func visibleLen(s string) int {
	count := 0
	inEscape := false
	for i := 0; i < len(s); i++ {
		if inEscape {
			if s[i] == 'm' {
				inEscape = false
			}
			continue
		}
		if s[i] == ansiEscapeStart {
			inEscape = true
			continue
		}
		if (s[i] & 0xC0) != 0x80 {
			_, size := utf8.DecodeRuneInString(s[i:])
			count++
			i += size - 1
		}
	}
	return count
}
