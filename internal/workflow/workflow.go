// =============================================================================
// Fish Reports - Workflow Orchestrator
// =============================================================================
//
// The orchestrator sequences the whole batch:
//
//   PathsValidated -> Loaded -> Filtered -> Aggregated -> Saved ->
//   Matched -> Replaced -> Summarized -> Done
//
// Any step failing moves the run to Failed and aborts the remaining
// steps; a fresh invocation restarts from the top, there is no partial
// retry. Per-license and per-file problems inside the matching and
// replacement steps are isolated: they are logged, counted, and never
// abort the batch.
//
// After replacement, groups that produced an output file are removed from
// the persisted intermediate workbook, leaving only unprocessed groups
// behind for a future run. That cleanup is the system's only resume
// mechanism and is best-effort: its failure is logged, not fatal.
//
// =============================================================================

package workflow

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fishreports/internal/cities"
	"fishreports/internal/config"
	"fishreports/internal/locator"
	"fishreports/internal/replace"
	"fishreports/internal/source"
	"fishreports/internal/tabular"
	"fishreports/pkg/utils"
)

// IntermediateFileName is the fixed name of the aggregated workbook inside
// the intermediate directory. Later steps and future runs re-read it by
// this name.
const IntermediateFileName = "filtered_data.xlsx"

// ErrPathInvalid marks setup-level path problems that abort the run before
// any processing.
var ErrPathInvalid = errors.New("invalid path")

// ErrAlreadyRunning is returned by RunAsync while a run is in flight.
// Runs never execute concurrently.
var ErrAlreadyRunning = errors.New("a run is already in progress")

// =============================================================================
// STATES
// =============================================================================

// State is the position of a run in the pipeline.
type State int

const (
	StateIdle State = iota
	StatePathsValidated
	StateLoaded
	StateFiltered
	StateAggregated
	StateSaved
	StateMatched
	StateReplaced
	StateSummarized
	StateDone
	StateFailed
)

var stateNames = [...]string{
	"Idle", "PathsValidated", "Loaded", "Filtered", "Aggregated",
	"Saved", "Matched", "Replaced", "Summarized", "Done", "Failed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// =============================================================================
// RESULTS
// =============================================================================

// Stats accumulates run statistics. It is built up and returned
// explicitly; nothing here is shared mutable state.
type Stats struct {
	RowsLoaded    int
	RowsRemoved   int
	Groups        int
	TotalPackages float64
	TotalWeightKG float64
	Licenses      int
	FilesWritten  int
	Unprocessed   []string
}

// Result is the outcome of one run.
type Result struct {
	RunID string
	State State
	Err   error
	Stats Stats

	// SummaryPath is the run summary file, when one was written.
	SummaryPath string
}

// Success reports whether the run reached Done.
func (r Result) Success() bool {
	return r.State == StateDone
}

// =============================================================================
// WORKFLOW
// =============================================================================

// Workflow runs the batch described by a Config.
type Workflow struct {
	cfg     *config.Config
	log     *zap.Logger
	running atomic.Bool

	// DryRun stops the pipeline after the intermediate file is written,
	// leaving templates and the output directory untouched.
	DryRun bool
}

// New creates a workflow. The logger must not be nil; tests pass
// zap.NewNop().
func New(cfg *config.Config, log *zap.Logger) *Workflow {
	if log == nil {
		log = zap.NewNop()
	}
	return &Workflow{cfg: cfg, log: log}
}

// Run executes the full pipeline synchronously and returns its Result.
func (w *Workflow) Run() Result {
	result := Result{RunID: uuid.NewString(), State: StateIdle}
	log := w.log.With(zap.String("run_id", result.RunID))

	fail := func(state State, err error) Result {
		log.Error("run failed",
			zap.String("step", state.String()), zap.Error(err))
		result.State = StateFailed
		result.Err = err
		return result
	}

	// -------------------------------------------------------------------------
	// Paths
	// -------------------------------------------------------------------------
	fm := utils.NewFileManager(w.cfg.IntermediateDir, w.cfg.ReportsDir, w.cfg.OutputDir)
	if !utils.FileExists(w.cfg.SourceFile) {
		return fail(StatePathsValidated, fmt.Errorf("%w: source file %s", ErrPathInvalid, w.cfg.SourceFile))
	}
	if err := fm.EnsureDirectories(); err != nil {
		return fail(StatePathsValidated, fmt.Errorf("%w: %v", ErrPathInvalid, err))
	}
	result.State = StatePathsValidated
	log.Info("paths validated",
		zap.String("source", w.cfg.SourceFile),
		zap.String("reports", w.cfg.ReportsDir),
		zap.String("output", w.cfg.OutputDir))

	// -------------------------------------------------------------------------
	// Load
	// -------------------------------------------------------------------------
	agg := source.NewAggregator(log)
	table, err := agg.Load(w.cfg.SourceFile)
	if err != nil {
		return fail(StateLoaded, err)
	}
	result.State = StateLoaded
	result.Stats.RowsLoaded = len(table.Rows)

	// -------------------------------------------------------------------------
	// Filter
	// -------------------------------------------------------------------------
	table, removed := agg.FilterValid(table)
	result.State = StateFiltered
	result.Stats.RowsRemoved = removed

	// -------------------------------------------------------------------------
	// Aggregate
	// -------------------------------------------------------------------------
	table = agg.ConvertWeightUnits(table)
	grouped, err := agg.GroupByDocumentAndAddress(table)
	if err != nil {
		return fail(StateAggregated, err)
	}
	result.State = StateAggregated

	stats := agg.SummaryStats(grouped)
	result.Stats.Groups = stats.Rows
	result.Stats.TotalPackages = stats.TotalPackages
	result.Stats.TotalWeightKG = stats.TotalWeightKG
	result.Stats.Licenses = stats.Licenses

	// -------------------------------------------------------------------------
	// Save intermediate
	// -------------------------------------------------------------------------
	intermediatePath := filepath.Join(w.cfg.IntermediateDir, IntermediateFileName)
	if err := tabular.SaveXLSX(grouped, intermediatePath); err != nil {
		return fail(StateSaved, err)
	}
	result.State = StateSaved
	log.Info("saved intermediate file", zap.String("path", intermediatePath))

	if w.DryRun {
		result.State = StateDone
		log.Info("dry run complete, stopping before template matching")
		return result
	}

	// -------------------------------------------------------------------------
	// Match
	// -------------------------------------------------------------------------
	directory := cities.LoadDirectory(w.cfg.CitiesFile, log)
	loc := locator.New(w.cfg.ReportsDir, directory, !w.cfg.Replacement.DisableContentSearch, log)

	licenses := agg.BusinessLicenses(grouped)
	candidates, err := loc.Candidates(licenses)
	if err != nil {
		return fail(StateMatched, err)
	}
	result.State = StateMatched

	// -------------------------------------------------------------------------
	// Replace
	// -------------------------------------------------------------------------
	// Stale outputs from earlier runs are removed before any report is
	// written. Not transactional: a crash mid-run leaves a partially
	// populated output directory, repaired by re-running.
	if err := fm.ClearOutputDir(); err != nil {
		return fail(StateReplaced, fmt.Errorf("%w: %v", ErrPathInvalid, err))
	}

	engine := replace.NewEngine(w.cfg.Replacement.RowProbeDepth, log)
	consumed := w.replaceAll(log, engine, loc, licenses, candidates, grouped, fm, &result.Stats)
	result.State = StateReplaced

	// -------------------------------------------------------------------------
	// Cleanup: drop consumed groups from the intermediate file
	// -------------------------------------------------------------------------
	w.removeConsumedGroups(log, grouped, consumed, intermediatePath)

	// -------------------------------------------------------------------------
	// Summarize
	// -------------------------------------------------------------------------
	result.SummaryPath = w.writeSummary(log, fm, result)
	result.State = StateSummarized

	result.State = StateDone
	log.Info("run complete",
		zap.Int("groups", result.Stats.Groups),
		zap.Int("files_written", result.Stats.FilesWritten),
		zap.Int("unprocessed_licenses", len(result.Stats.Unprocessed)))
	return result
}

// RunAsync executes Run on a background goroutine so a calling UI stays
// responsive. done is invoked exactly once with the result; by the time
// it fires, the workflow accepts the next run. Only one run may be in
// flight; there is no cancellation.
func (w *Workflow) RunAsync(done func(Result)) error {
	if !w.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	go func() {
		result := w.Run()
		w.running.Store(false)
		if done != nil {
			done(result)
		}
	}()
	return nil
}

// =============================================================================
// REPLACEMENT PHASE
// =============================================================================

// replaceAll feeds every aggregate record into its matched template and
// collects the group keys that produced an output file. Failures are
// per-record and never stop the loop.
func (w *Workflow) replaceAll(
	log *zap.Logger,
	engine *replace.Engine,
	loc *locator.Locator,
	licenses []string,
	candidates map[string][]string,
	grouped *tabular.Table,
	fm *utils.FileManager,
	stats *Stats,
) map[string]bool {
	records := source.Records(grouped)
	byLicense := make(map[string][]source.AggregateRecord)
	for _, rec := range records {
		byLicense[rec.License] = append(byLicense[rec.License], rec)
	}

	consumed := make(map[string]bool)
	for _, license := range licenses {
		files := candidates[license]
		if len(files) == 0 {
			stats.Unprocessed = append(stats.Unprocessed, license)
			log.Warn("license has no report template, skipped",
				zap.String("license", license))
			continue
		}

		for i, rec := range byLicense[license] {
			chosen := loc.Disambiguate(files, rec.Address)
			template := chosen[0]
			outputPath := fm.OutputPath(template, i)

			n, err := engine.Replace(template, outputPath, replace.Values{
				Document:    rec.Document,
				WeightKG:    rec.WeightKG,
				Packages:    rec.Packages,
				CardName:    rec.CardName,
				ForeignName: rec.ForeignName,
				Address:     rec.Address,
			})
			if err != nil {
				log.Error("failed to process template",
					zap.String("license", license),
					zap.String("template", template),
					zap.Error(err))
				continue
			}

			stats.FilesWritten++
			consumed[rec.GroupKey()] = true
			log.Info("wrote report",
				zap.String("license", license),
				zap.String("output", outputPath),
				zap.Int("fields_replaced", n))
		}
	}
	return consumed
}

// removeConsumedGroups rewrites the intermediate workbook without the
// groups that were successfully reported, leaving only pending work for a
// future run. Best-effort: failure logs and the run continues.
func (w *Workflow) removeConsumedGroups(log *zap.Logger, grouped *tabular.Table, consumed map[string]bool, path string) {
	if len(consumed) == 0 {
		return
	}
	pending, removed := grouped.Filter(func(row tabular.Row) bool {
		recs := source.Records(&tabular.Table{Headers: grouped.Headers, Rows: []tabular.Row{row}})
		return !consumed[recs[0].GroupKey()]
	})
	if err := tabular.SaveXLSX(pending, path); err != nil {
		log.Warn("failed to update intermediate file after replacement",
			zap.String("path", path), zap.Error(err))
		return
	}
	log.Info("removed processed groups from intermediate file",
		zap.Int("removed", removed), zap.Int("pending", len(pending.Rows)))
}

// writeSummary emits the end-of-run summary block to the log and to a
// text file in the output directory.
func (w *Workflow) writeSummary(log *zap.Logger, fm *utils.FileManager, result Result) string {
	s := result.Stats
	lines := []string{
		fmt.Sprintf("run:                 %s", result.RunID),
		fmt.Sprintf("rows loaded:         %d", s.RowsLoaded),
		fmt.Sprintf("rows removed:        %d", s.RowsRemoved),
		fmt.Sprintf("report groups:       %d", s.Groups),
		fmt.Sprintf("total packages:      %.2f", s.TotalPackages),
		fmt.Sprintf("total weight (kg):   %.2f", s.TotalWeightKG),
		fmt.Sprintf("distinct licenses:   %d", s.Licenses),
		fmt.Sprintf("files written:       %d", s.FilesWritten),
		fmt.Sprintf("unprocessed:         %d", len(s.Unprocessed)),
	}
	for _, lic := range s.Unprocessed {
		lines = append(lines, fmt.Sprintf("  - license %s: no matching template", lic))
	}

	log.Info("run summary",
		zap.Int("rows_loaded", s.RowsLoaded),
		zap.Int("rows_removed", s.RowsRemoved),
		zap.Int("groups", s.Groups),
		zap.Float64("total_packages", s.TotalPackages),
		zap.Float64("total_weight_kg", s.TotalWeightKG),
		zap.Int("licenses", s.Licenses),
		zap.Int("files_written", s.FilesWritten))

	path, err := fm.WriteSummary(result.RunID, lines)
	if err != nil {
		log.Warn("failed to write summary file", zap.Error(err))
		return ""
	}
	return path
}
