package scheduler

import (
	"path/filepath"

	"go.trai.ch/kiln/internal/core/domain"
)

// Plan is the staleness decision for one compile pass.
type Plan struct {
	// Stale holds one entry per source unit, in list order.
	Stale       []bool
	FullRebuild bool
	Reason      string
}

// Plan decides which units need compiling. Any doubt resolves to compiling:
// probe failures are logged and treated as stale.
func (s *Scheduler) Plan(fullRebuild bool) Plan {
	if fullRebuild {
		return s.fullPlan("requested")
	}

	if !s.probe.Exists(s.project.BuildDir) {
		return s.fullPlan("build directory does not exist")
	}

	if reason, changed := s.flagsChanged(); changed {
		return s.fullPlan(reason)
	}

	headers, err := s.headerDeps()
	if err != nil {
		s.logger.Warn("could not list headers in " + s.project.HeadersDir + ": " + err.Error())
		return s.fullPlan("header directory unreadable")
	}

	first := s.project.Sources[0]
	switch verdict := s.probe.NeedsRebuild(s.project.ObjectPath(first), headers); verdict {
	case domain.VerdictStale:
		return s.fullPlan("headers changed")
	case domain.VerdictUnknown:
		s.logger.Warn("could not compare headers against " + s.project.ObjectPath(first))
		return s.fullPlan("header check failed")
	case domain.VerdictFresh:
	}

	plan := Plan{Stale: make([]bool, len(s.project.Sources))}
	for i, unit := range s.project.Sources {
		object := s.project.ObjectPath(unit)
		deps := append([]string{unit.Path()}, headers...)

		verdict := s.probe.NeedsRebuild(object, deps)
		if verdict == domain.VerdictUnknown {
			s.logger.Warn("could not check " + object + ", recompiling " + unit.Base())
		}
		plan.Stale[i] = verdict.NeedsRebuild()
	}
	return plan
}

func (s *Scheduler) fullPlan(reason string) Plan {
	stale := make([]bool, len(s.project.Sources))
	for i := range stale {
		stale[i] = true
	}
	return Plan{Stale: stale, FullRebuild: true, Reason: reason}
}

// flagsChanged compares the current command template against the stored stamp.
func (s *Scheduler) flagsChanged() (string, bool) {
	stamp, err := s.store.Get(s.project.StampPath())
	if err != nil {
		s.logger.Warn("could not read build stamp: " + err.Error())
		return "build stamp unreadable", true
	}
	if stamp == nil {
		return "no build stamp", true
	}
	if stamp.FlagsHash != s.hasher.HashArgs(s.project.CommandTemplate()) {
		return "compile flags changed", true
	}
	return "", false
}

// headerDeps lists the headers directory flat. Subdirectories count as entries.
func (s *Scheduler) headerDeps() ([]string, error) {
	names, err := s.probe.ListDir(s.project.HeadersDir)
	if err != nil {
		return nil, err
	}
	deps := make([]string, len(names))
	for i, name := range names {
		deps[i] = filepath.Join(s.project.HeadersDir, name)
	}
	return deps, nil
}
