// Package acquire detects, validates and relocates files produced by an
// external process that gives no completion signal, such as a browser's
// download manager.
//
// # Components
//
//   - [Prober]: decides whether a file has finished being written.
//   - [Selector]: picks the most recent matching file in a watched directory.
//   - [Poller]: repeats selection and probing until success or timeout.
//   - [Relocator]: moves an acquired file into a destination without ever
//     overwriting, resolving collisions with "_1", "_2", ... suffixes.
//   - [Orchestrator]: runs a batch of units one at a time and produces a
//     [RunSummary].
//
// # Usage
//
//	orch := acquire.NewOrchestrator(acquire.Session{
//	    WatchDir:  downloads,
//	    DestDir:   dest,
//	    Trigger:   trigger,
//	    Poller:    &acquire.Poller{Timeout: 5 * time.Second},
//	    Relocator: &acquire.Relocator{},
//	    Reporter:  reporter,
//	})
//
//	summary := orch.Run(ctx, []acquire.UnitRequest{
//	    {ID: "0010", Name: "Clinica A"},
//	    {ID: "0011", Name: "Clinica B"},
//	})
//
// From a UI thread use [Orchestrator.Start] and read the summary from the
// returned channel.
//
// # Poller States
//
//	WAITING --tick--> WAITING     (no candidate, or candidate not yet stable)
//	WAITING --tick--> DONE        (candidate stable)
//	WAITING --deadline--> TIMED_OUT --> fallback scan --> path | error
//
// # Errors
//
// Unit failures are reported, never propagated out of a batch:
//   - [NotFoundError]: nothing appeared before the deadline.
//   - [UnstableFileError]: something appeared but never stabilized.
//   - [RelocationError]: the file could not be moved; the source stays put.
//   - [InvalidDirectoryError]: the watched directory is missing or unreadable.
//   - [TriggerError]: the external action failed.
//
// # Destination Names
//
// Files are named "<logical name>.xlsx", then "<logical name>_1.xlsx" and so
// on. Downstream lookups should rely on that convention.
package acquire
