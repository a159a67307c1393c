// Package webfetch provides the tool the validation stage uses to check
// claims against live pages. It fetches a page over HTTP(S) and converts
// the HTML to Markdown for the model.
//
// [NewFetcher] builds the fetcher and [NewWebFetchTool] exposes it as a
// tool. URL normalisation, redirect following, the body size limit and
// Markdown truncation are handled by [Fetcher.Fetch].
package webfetch
