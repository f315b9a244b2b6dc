package extract

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/plc-diagram/backend/internal/diagram"
	"github.com/plc-diagram/backend/internal/l5x"
	"github.com/plc-diagram/backend/internal/models"
)

// ProgressFunc receives stage-by-stage human-readable progress messages.
// It is an observability side channel only; the result does not depend on it.
type ProgressFunc func(msg string)

// Options configures one pipeline run.
type Options struct {
	// InputPath is the L5X file to read.
	InputPath string

	// OutputPath, when non-empty, is where the markdown document is
	// written. Nothing is written on failure.
	OutputPath string

	// TagName overrides state tag auto-detection when non-empty.
	TagName string

	// Grammar selects the diagram syntax. Zero value renders a flowchart.
	Grammar diagram.Grammar

	// Profile carries the extraction conventions. Zero value uses defaults.
	Profile Profile

	// AllowDefaultNames lets the run proceed with synthesized state names
	// when no state tag can be resolved, instead of failing.
	AllowDefaultNames bool

	// Progress, when set, receives stage messages during the run.
	Progress ProgressFunc
}

// Generate runs the full pipeline: load the export, locate the state logic
// section, build the transition graph, resolve state names, render the
// diagram, and (optionally) write the markdown document. On failure no
// output is written and the error wraps one of the package sentinels.
func Generate(opts Options) (*models.DiagramResult, error) {
	progress := opts.Progress
	if progress == nil {
		progress = func(string) {}
	}

	progress(fmt.Sprintf("Loading L5X file: %s", opts.InputPath))
	project, err := l5x.LoadProject(opts.InputPath)
	if err != nil {
		if isNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, opts.InputPath)
		}
		return nil, err
	}

	return GenerateFromProject(project, opts)
}

// GenerateFromProject runs the pipeline over an already-parsed project.
func GenerateFromProject(project *l5x.Project, opts Options) (*models.DiagramResult, error) {
	progress := opts.Progress
	if progress == nil {
		progress = func(string) {}
	}
	profile := opts.Profile.normalized()
	if opts.Grammar == "" {
		opts.Grammar = diagram.GrammarFlowchart
	}

	progress("Searching for state logic section...")
	loc, ok := locateSection(project, DefaultStrategies(profile))
	if !ok {
		return nil, ErrSectionNotFound
	}
	progress(fmt.Sprintf("Found state logic in program %s, routine %s (rung %d, %s)",
		loc.program, loc.routine, loc.startIdx, loc.strategy.Name()))

	var warnings []string

	resolver := NewResolver(project, profile)
	tagName, err := resolver.SelectTag(opts.TagName, loc.rungs, loc.startIdx)
	if err != nil {
		if !opts.AllowDefaultNames {
			return nil, err
		}
		warnings = append(warnings, "no state tag resolved; using default state names")
		tagName = ""
	} else {
		progress(fmt.Sprintf("Using state tag: %s", tagName))
	}

	progress("Extracting state transitions...")
	graph := BuildTransitions(loc.rungs, loc.startIdx, profile)
	if graph.Empty() {
		warnings = append(warnings, "no state transitions found in section")
	}

	progress("Resolving state names...")
	states := graph.States()
	var names map[int]string
	if tagName != "" {
		names = resolver.StateNames(tagName, states)
	} else {
		names = DefaultStateNames(states)
	}

	progress("Rendering diagram...")
	text := diagram.Render(graph, names, loc.routine, opts.Grammar)

	if opts.OutputPath != "" {
		progress(fmt.Sprintf("Saving diagram to: %s", opts.OutputPath))
		if err := diagram.WriteMarkdown(opts.OutputPath, text); err != nil {
			return nil, err
		}
	}

	return &models.DiagramResult{
		States:          states,
		TransitionCount: graph.EdgeCount(),
		Diagram:         text,
		Program:         loc.program,
		Routine:         loc.routine,
		Tag:             tagName,
		Grammar:         string(opts.Grammar),
		Warnings:        warnings,
		GeneratedAt:     time.Now().UTC(),
	}, nil
}

type sectionLocation struct {
	program  string
	routine  string
	rungs    []l5x.Rung
	startIdx int
	strategy StartStrategy
}

// locateSection scans every ladder routine of every program for the first
// one containing a state logic section.
func locateSection(project *l5x.Project, strategies []StartStrategy) (sectionLocation, bool) {
	for _, prog := range project.Programs() {
		for _, routine := range prog.Routines {
			if len(routine.Rungs) == 0 {
				continue
			}
			if idx, strategy, ok := FindSectionStart(routine.Rungs, strategies); ok {
				return sectionLocation{
					program:  prog.Name,
					routine:  routine.Name,
					rungs:    routine.Rungs,
					startIdx: idx,
					strategy: strategy,
				}, true
			}
		}
	}
	return sectionLocation{}, false
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
