// Package http provides the HTTP client used to fetch exported reports.
//
// This package handles:
//   - Retry with exponential backoff and jitter on connection failures and 5xx
//   - Mapping of 401, 403 and 404 to sentinel errors
//   - File names suggested by Content-Disposition
//
// # Usage
//
//	client := http.NewClient(http.DefaultOptions())
//
//	resp, n, err := client.Download(ctx, url, f)
//	// resp.FileName, resp.ContentType
package http
