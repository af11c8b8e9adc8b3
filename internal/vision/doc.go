// Package vision sends captured page state to a vision-capable model and
// parses the response into structured bug reports.
//
// The Analyzer interface decouples the checker from the concrete model
// API; GeminiClient is the production implementation. All API calls go
// through a shared rate limiter and a bounded retry loop because vision
// endpoints both rate limit and fail transiently under normal operation.
package vision
