package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pterm/pterm"
)

// Display renders a spinner per discovery step and a progress bar for the
// collection run. It satisfies discovery.Observer and its Collect method
// fits engine.WithProgress.
type Display struct {
	mu      sync.Mutex
	w       io.Writer
	spinner *pterm.SpinnerPrinter
	bar     *pterm.ProgressbarPrinter
	done    int
	total   int
}

// New returns a Display writing to w, or to stdout when w is nil.
func New(w io.Writer) *Display {
	if w == nil {
		w = os.Stdout
	}
	return &Display{w: w}
}

// StepStarted starts the spinner for a discovery step.
func (d *Display) StepStarted(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopSpinner()
	sp, err := pterm.DefaultSpinner.
		WithWriter(d.w).
		WithStyle(pterm.NewStyle(pterm.FgCyan)).
		WithRemoveWhenDone(true).
		Start(fmt.Sprintf("Discovering %s...", pterm.Cyan(name)))
	if err != nil {
		return
	}
	d.spinner = sp
}

// StepFinished stops the spinner and prints the step result.
func (d *Display) StepFinished(name string, count int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopSpinner()
	if err != nil {
		pterm.Fprintln(d.w, fmt.Sprintf("%s %s: %s", pterm.Red("✗"), name, err))
		return
	}
	pterm.Fprintln(d.w, fmt.Sprintf("%s %s: %d targets", pterm.Green("✓"), name, count))
}

// Collect advances the collection bar to done of total.
func (d *Display) Collect(done, total int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.bar == nil && total > 0 {
		bar, err := pterm.DefaultProgressbar.
			WithWriter(d.w).
			WithTotal(total).
			WithTitle("Collecting").
			WithRemoveWhenDone(true).
			Start()
		if err == nil {
			d.bar = bar
		}
	}
	if delta := done - d.done; delta > 0 && d.bar != nil {
		d.bar.Add(delta)
	}
	d.done, d.total = done, total
	if d.bar != nil && done >= total {
		_, _ = d.bar.Stop()
		d.bar = nil
		pterm.Fprintln(d.w, fmt.Sprintf("%s collected %d hosts", pterm.Green("✓"), total))
	}
}

// Stop releases any running spinner or bar.
func (d *Display) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopSpinner()
	if d.bar != nil {
		_, _ = d.bar.Stop()
		d.bar = nil
	}
}

// Counts returns the last reported collection progress.
func (d *Display) Counts() (done, total int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done, d.total
}

func (d *Display) stopSpinner() {
	if d.spinner != nil {
		_ = d.spinner.Stop()
		d.spinner = nil
	}
}
