// Package tool defines locally executed tools that a model can invoke
// through function calling.
//
// A tool wraps a typed Go function together with its name, description and
// auto-derived JSON schema; [NewTool] builds one and [WithDescription]
// configures it. [Catalog] is a thread-safe registry the client consults
// when the model requests a call.
package tool
