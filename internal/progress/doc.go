// Package progress provides progress reporting for acquisition batches.
//
// Reporter implements acquire.Reporter and writes human-readable progress
// to stdout: one line per finished unit, a periodically refreshed status
// line, and a final summary.
//
// # Usage
//
//	reporter := progress.NewReporter(progress.Options{
//	    TotalUnits: len(units),
//	    WatchDir:   watchDir,
//	    DestDir:    destDir,
//	})
//	poller.OnTick = reporter.Tick
//
//	reporter.Start()
//	defer reporter.Stop()
//
//	session.Reporter = reporter
//
// # Output Format
//
//	[acquire] Watching: /home/ana/Descargas
//	[acquire] Destination: /srv/Inventario 17-10-2026 | Units: 9
//	[acquire] 0001: HEALTHY MATRIZ -> HEALTHY MATRIZ.xlsx (84.12 KB, 12s)
//	[acquire] Progress: 3/9 units | 3 acquired | 0 failed | 251.40 KB | Poller: waiting - | ETA: 1m 12s
//	[acquire] Units: 9/9 | 8 acquired | 1 failed | 702.93 KB
//	[acquire] Run 4b0f... complete
//	[acquire] Total time: 1m 58s
package progress
