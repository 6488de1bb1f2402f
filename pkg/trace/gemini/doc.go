// Package gemini generates execution traces and summaries with Google's
// Gemini models.
//
// The provider numbers the source lines, sends them with strict stepping
// rules (one step per executed line, loop headers on every iteration, only
// the taken branch) and asks for JSON. Replies wrapped in markdown fences
// are unwrapped, parsed with [trace.Parse] and validated against the source
// before they are returned. Transient failures (rate limits, 5xx, malformed
// JSON) are retried through [cache.RetryWithBackoff].
//
//	p, err := gemini.New(ctx, gemini.Config{APIKey: key})
//	t, err := p.Trace(ctx, trace.Request{Code: src, Inputs: []string{"3"}})
//
// The model call sits behind [Generator] so tests can substitute canned
// replies.
package gemini
