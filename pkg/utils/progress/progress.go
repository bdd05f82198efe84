// Package progress renders a per-phase completion indicator for
// interactive operators. It is presentation only; machine-readable
// outcomes go to the structured log.
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
)

const barWidth = 20

// Reporter writes an in-place progress bar per phase. A nil Reporter
// is valid and silent, so non-interactive callers can pass nil.
type Reporter struct {
	mu sync.Mutex
	w  io.Writer
}

// New creates a Reporter writing to w
func New(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Update redraws the bar for a phase. ratio is clamped to [0, 1];
// reaching 1 terminates the line.
func (r *Reporter) Update(phase string, done, total int) {
	if r == nil || r.w == nil {
		return
	}

	ratio := 1.0
	if total > 0 {
		ratio = float64(done) / float64(total)
	}
	if ratio < 0 {
		ratio = 0
	} else if ratio > 1 {
		ratio = 1
	}

	filled := int(ratio * barWidth)
	bar := strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled)

	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(r.w, "\r%s: [%s] %3.0f%%", color.CyanString(phase), bar, ratio*100)
	if ratio >= 1 {
		fmt.Fprintf(r.w, " %s\n", color.GreenString("DONE"))
	}
}

// Done marks a phase complete regardless of its item count
func (r *Reporter) Done(phase string) {
	r.Update(phase, 1, 1)
}
