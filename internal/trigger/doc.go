// Package trigger provides the actions that make a report appear in the
// watched directory.
//
//   - None does nothing; a person produces the file.
//   - Command runs a program whose argv is templated with the unit.
//   - HTTP downloads a templated URL into the watch directory through a
//     .crdownload partial file.
//   - Browser drives Chromium with downloads pointed at the watch
//     directory, optionally clicking an export element, and reloads the
//     page between units.
//
// Templates are text/template strings evaluated against an
// acquire.UnitRequest:
//
//	https://erp.example.com/export?clinic={{.ID}}&name={{.LogicalName}}
package trigger
