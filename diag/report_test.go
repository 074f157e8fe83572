// Copyright © 2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package diag

import (
	"bytes"
	"strings"
	"testing"

	"golang.org/x/text/language"
)

func TestWriteConvergenceReportConverged(t *testing.T) {
	var buf bytes.Buffer
	report := ConvergenceReport{Frame: 10, PassesUsed: 3, MaxPasses: 10, Converged: true}
	if err := WriteConvergenceReport(&buf, language.English, report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "converged") || !strings.Contains(out, "10") {
		t.Errorf("expected converged summary mentioning the frame, got %q", out)
	}
}

func TestWriteConvergenceReportNotConverged(t *testing.T) {
	var buf bytes.Buffer
	report := ConvergenceReport{Frame: 11, MaxPasses: 10, Converged: false, DeferredLeft: 4}
	if err := WriteConvergenceReport(&buf, language.English, report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "did not converge") || !strings.Contains(out, "4") {
		t.Errorf("expected non-convergence summary mentioning deferred count, got %q", out)
	}
}

func TestWriteGroupOverflowReport(t *testing.T) {
	var buf bytes.Buffer
	report := GroupOverflowReport{Group: "OpaqueEntityHuge", Dropped: 12}
	if err := WriteGroupOverflowReport(&buf, language.English, report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "OpaqueEntityHuge") || !strings.Contains(out, "12") {
		t.Errorf("expected overflow summary naming the group and count, got %q", out)
	}
}
