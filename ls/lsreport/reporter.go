// Package lsreport delivers the accepted pair of a lockstep run
// to its final destinations: standard output, a report file, or both.
package lsreport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	petname "github.com/dustinkirkland/golang-petname"
	"github.com/google/uuid"
	"github.com/gordian-engine/lockstep/ls/lsround"
	"gopkg.in/yaml.v3"
)

// Reporter receives the accepted pair exactly once, when the run ends.
type Reporter interface {
	ReportAccepted(ctx context.Context, pair lsround.AcceptedPair) error
}

// RunInfo identifies one run of the three participants.
type RunInfo struct {
	ID   uuid.UUID
	Name string
}

// NewRunInfo returns a RunInfo with a random ID and a generated human-readable name.
func NewRunInfo() RunInfo {
	return RunInfo{
		ID:   uuid.New(),
		Name: petname.Generate(2, "-"),
	}
}

// Report is the document written by [YAMLFileReporter].
type Report struct {
	RunID      string    `yaml:"run_id"`
	RunName    string    `yaml:"run_name"`
	Round      uint64    `yaml:"round"`
	First      string    `yaml:"first"`
	Second     string    `yaml:"second"`
	AcceptedAt time.Time `yaml:"accepted_at"`
}

// NewReport builds the report for pair.
func (i RunInfo) NewReport(pair lsround.AcceptedPair, at time.Time) Report {
	return Report{
		RunID:      i.ID.String(),
		RunName:    i.Name,
		Round:      pair.Round.Number,
		First:      pair.First.String(),
		Second:     pair.Second.String(),
		AcceptedAt: at.UTC(),
	}
}

// WriterReporter prints a single line describing the accepted pair.
type WriterReporter struct {
	W io.Writer
}

func (r WriterReporter) ReportAccepted(_ context.Context, pair lsround.AcceptedPair) error {
	_, err := fmt.Fprintf(
		r.W, "passed strings are %q and %q (%s)\n",
		pair.First.String(), pair.Second.String(), pair.Round,
	)
	return err
}

// YAMLFileReporter writes a [Report] to Path, replacing any existing file.
type YAMLFileReporter struct {
	Path string
	Info RunInfo

	// Defaults to time.Now.
	Now func() time.Time
}

func (r YAMLFileReporter) ReportAccepted(_ context.Context, pair lsround.AcceptedPair) error {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	b, err := yaml.Marshal(r.Info.NewReport(pair, now()))
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.WriteFile(r.Path, b, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// ReadReportFile loads a report previously written by [YAMLFileReporter].
func ReadReportFile(path string) (Report, error) {
	var rep Report

	b, err := os.ReadFile(path)
	if err != nil {
		return rep, err
	}
	if err := yaml.Unmarshal(b, &rep); err != nil {
		return rep, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	return rep, nil
}

// MultiReporter reports to each reporter in order.
// Every reporter is attempted; the returned error joins any failures.
type MultiReporter []Reporter

func (m MultiReporter) ReportAccepted(ctx context.Context, pair lsround.AcceptedPair) error {
	var errs []error
	for _, r := range m {
		if err := r.ReportAccepted(ctx, pair); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
