// Package overview tracks what a single pipeline run consumed: token usage
// in total and per stage, request counts and tool call statistics.
// The central type is [Overview]; the run driver stores one in the context
// with [Overview.ToContext] and the client layer reports into it through
// [FromContext].
package overview
