// Package gemini implements [ai.Provider] for Google's Gemini generative
// language REST API.
//
// It converts the generic [ai.ChatRequest] into the generateContent wire
// format: system instruction, response schema, the googleSearch built-in
// tool and local function declarations. Responses are mapped back to
// [ai.ChatResponse] including search grounding sources and token usage.
//
// The entry point is [New], which reads GEMINI_API_KEY (or GOOGLE_API_KEY)
// and GEMINI_API_BASE_URL from the environment. Use
// [GeminiProvider.WithAPIKey], [GeminiProvider.WithBaseURL] or
// [GeminiProvider.WithHttpClient] to configure it programmatically.
package gemini
