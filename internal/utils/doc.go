// Package utils provides shared low-level helpers: the synchronous JSON POST
// used by HTTP providers ([DoPostSync]), deferred close logging, string
// truncation for logs and the generic [Ptr] helper.
package utils
