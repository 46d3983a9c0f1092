package trajectory

import (
	"fmt"

	"github.com/vinayprograms/agentkit/logging"
)

// Detector names reported in abort signals.
const (
	DetectorConsecutiveEmpty = "consecutive_empty"
	DetectorSameCommand      = "same_command_streak"
	DetectorIdenticalCalls   = "identical_calls"
)

// Default thresholds for the built-in detectors.
const (
	DefaultEmptyStreakThreshold = 5
	DefaultSameCommandThreshold = 6
	DefaultIdenticalWindow      = 5
	DefaultSignaturePrefixLen   = 200
)

// MonitorConfig tunes the loop detectors. Zero values take the defaults;
// SignaturePrefixLen 0 means compare full signatures.
type MonitorConfig struct {
	EmptyStreakThreshold int
	SameCommandThreshold int
	IdenticalWindow      int
	SignaturePrefixLen   int
}

// DefaultMonitorConfig returns the standard thresholds.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		EmptyStreakThreshold: DefaultEmptyStreakThreshold,
		SameCommandThreshold: DefaultSameCommandThreshold,
		IdenticalWindow:      DefaultIdenticalWindow,
		SignaturePrefixLen:   DefaultSignaturePrefixLen,
	}
}

// Abort describes a detected loop. Once a monitor returns an Abort the
// session that owns the trajectory must stop proposing actions.
type Abort struct {
	Detector  string `json:"detector"`
	Command   string `json:"command"`
	Count     int    `json:"count"`
	Threshold int    `json:"threshold"`
	Reason    string `json:"reason"`
}

func (a *Abort) Error() string {
	return fmt.Sprintf("trajectory abort (%s): %s", a.Detector, a.Reason)
}

// Monitor evaluates loop detectors over a trajectory tail. It is stateless
// between calls; every Observe recomputes from the records, so replaying a
// persisted trajectory reproduces the same verdicts.
type Monitor struct {
	cfg    MonitorConfig
	logger *logging.Logger
}

// NewMonitor creates a monitor, filling unset config fields with defaults.
func NewMonitor(cfg MonitorConfig) *Monitor {
	def := DefaultMonitorConfig()
	if cfg.EmptyStreakThreshold <= 0 {
		cfg.EmptyStreakThreshold = def.EmptyStreakThreshold
	}
	if cfg.SameCommandThreshold <= 0 {
		cfg.SameCommandThreshold = def.SameCommandThreshold
	}
	if cfg.IdenticalWindow <= 0 {
		cfg.IdenticalWindow = def.IdenticalWindow
	}
	if cfg.SignaturePrefixLen < 0 {
		cfg.SignaturePrefixLen = 0
	}
	return &Monitor{
		cfg:    cfg,
		logger: logging.New().WithComponent("trajectory-monitor"),
	}
}

// Observe runs all detectors over the trajectory and returns the first abort
// triggered, or nil when the trajectory still looks productive. Detectors run
// in fixed order so a tail that trips several reports deterministically.
func (m *Monitor) Observe(t *Trajectory) *Abort {
	records := t.Records()
	if len(records) == 0 {
		return nil
	}

	if abort := m.checkEmptyStreak(records); abort != nil {
		m.logAbort(abort)
		return abort
	}
	if abort := m.checkSameCommand(records); abort != nil {
		m.logAbort(abort)
		return abort
	}
	if abort := m.checkIdenticalCalls(records); abort != nil {
		m.logAbort(abort)
		return abort
	}
	return nil
}

func (m *Monitor) logAbort(a *Abort) {
	m.logger.Warn("loop detected, aborting session", map[string]interface{}{
		"detector":  a.Detector,
		"command":   a.Command,
		"count":     a.Count,
		"threshold": a.Threshold,
	})
}

// checkEmptyStreak fires when the last N invocations of one command all
// produced empty output. A non-empty result or a different command resets
// the streak.
func (m *Monitor) checkEmptyStreak(records []Record) *Abort {
	threshold := m.cfg.EmptyStreakThreshold
	last := records[len(records)-1]
	streak := 0
	for i := len(records) - 1; i >= 0; i-- {
		if !records[i].Empty || records[i].Command != last.Command {
			break
		}
		streak++
	}
	if streak < threshold {
		return nil
	}
	return &Abort{
		Detector:  DetectorConsecutiveEmpty,
		Command:   last.Command,
		Count:     streak,
		Threshold: threshold,
		Reason:    fmt.Sprintf("command %q returned empty output %d times in a row", last.Command, streak),
	}
}

// checkSameCommand fires when the same command identifier repeats N times in
// a row regardless of arguments.
func (m *Monitor) checkSameCommand(records []Record) *Abort {
	threshold := m.cfg.SameCommandThreshold
	last := records[len(records)-1]
	streak := 0
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Command != last.Command {
			break
		}
		streak++
	}
	if streak < threshold {
		return nil
	}
	return &Abort{
		Detector:  DetectorSameCommand,
		Command:   last.Command,
		Count:     streak,
		Threshold: threshold,
		Reason:    fmt.Sprintf("command %q repeated %d times in a row", last.Command, streak),
	}
}

// checkIdenticalCalls fires when the last N calls are byte-identical up to
// the signature prefix, command and arguments included.
func (m *Monitor) checkIdenticalCalls(records []Record) *Abort {
	window := m.cfg.IdenticalWindow
	if len(records) < window {
		return nil
	}
	tail := records[len(records)-window:]
	want := m.signature(tail[0])
	for _, r := range tail[1:] {
		if m.signature(r) != want {
			return nil
		}
	}
	last := tail[len(tail)-1]
	return &Abort{
		Detector:  DetectorIdenticalCalls,
		Command:   last.Command,
		Count:     window,
		Threshold: window,
		Reason:    fmt.Sprintf("last %d invocations of %q were identical", window, last.Command),
	}
}

func (m *Monitor) signature(r Record) string {
	sig := r.Signature()
	if n := m.cfg.SignaturePrefixLen; n > 0 && len(sig) > n {
		sig = sig[:n]
	}
	return sig
}
