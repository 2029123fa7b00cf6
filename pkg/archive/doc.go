// Package archive copies the files of an acquisition run to cloud storage.
//
// Storage access goes through gocloud.dev/blob, so any bucket URL with a
// registered driver works (mem://, file://, s3://, gs://).
//
// # Storing
//
// [Store] uploads every acquired file of an [acquire.RunSummary], then
// writes a manifest. A run whose manifest exists is complete.
//
// Options:
//   - [WithChecksum]: compute SHA256 per file (default true)
//   - [WithMetadata]: caller-defined metadata stored in the manifest
//   - [WithVerifyChecksum]: compare content against checksums in [Validate]
//     and [Restore]
//
// # Storage Layout
//
//	{bucket}/{prefix}/{runID}/HEALTHY MATRIZ.xlsx
//	{bucket}/{prefix}/{runID}/PLANTA IBAGUE.xlsx
//	{bucket}/{prefix}/{runID}.manifest.json
//
// # Manifest Format
//
//	{
//	  "run_id": "7d1e...",
//	  "attempted": 9,
//	  "acquired": 8,
//	  "failed": 1,
//	  "files_prefix": "inventario/7d1e.../",
//	  "files": [
//	    {"unit": "0001", "object": "HEALTHY MATRIZ.xlsx", "size": 86134, "checksum": "..."}
//	  ],
//	  "failures": [
//	    {"unit": "0017", "state": "timed_out", "class": "not_found", "error": "..."}
//	  ],
//	  "started_at": "2026-10-17T08:00:00Z",
//	  "finished_at": "2026-10-17T08:02:11Z",
//	  "archived_at": "2026-10-17T08:02:12Z"
//	}
//
// Use [Validate] to check a run, [Restore] to download it again, [Delete]
// or [DeletePartial] to remove it, and [List] to enumerate runs.
package archive
