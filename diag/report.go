// Copyright © 2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package diag

import (
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ConvergenceReport summarises one RecomputeRenderableLeaves call for a
// frame, for a developer watching dirty-loop behaviour over time.
type ConvergenceReport struct {
	Frame        int64
	PassesUsed   int
	MaxPasses    int
	Converged    bool
	DeferredLeft int
}

// GroupOverflowReport summarises one frame's per-group emission overflow,
// if any.
type GroupOverflowReport struct {
	Group   string
	Dropped int
}

// WriteConvergenceReport writes a locale-formatted one-line summary of
// report to w using tag (e.g. language.English).
func WriteConvergenceReport(w io.Writer, tag language.Tag, report ConvergenceReport) error {
	p := message.NewPrinter(tag)
	if report.Converged {
		_, err := p.Fprintf(w, "frame %d: dirty queue converged in %d of %d passes\n",
			report.Frame, report.PassesUsed, report.MaxPasses)
		return err
	}
	_, err := p.Fprintf(w, "frame %d: dirty queue did not converge in %d passes, %d entries deferred\n",
		report.Frame, report.MaxPasses, report.DeferredLeft)
	return err
}

// WriteGroupOverflowReport writes a locale-formatted summary of a dropped
// render-group overflow to w.
func WriteGroupOverflowReport(w io.Writer, tag language.Tag, report GroupOverflowReport) error {
	p := message.NewPrinter(tag)
	_, err := p.Fprintf(w, "render group %s overflowed, dropped %d entries\n", report.Group, report.Dropped)
	return err
}
