// Package zendesk is a small client for the Zendesk Support and Help Center
// REST APIs.
//
// Every request goes through an upstream.Budget: a 429 response becomes an
// upstream.ThrottledError that the budget absorbs and retries, while
// authentication, permission, server and transport failures become
// upstream.UnavailableError values carrying a hint for the user. A 404 is a
// NotFoundError (errors.Is(err, ErrNotFound)).
//
// Records are returned as decoded JSON objects so the response engine in
// internal/tools/output can project and summarize them without a typed model.
// Collection calls follow pagination links until the collection ends or the
// record cap (Config.MaxRecords, default 1000) is reached; Collection.Capped
// tells the caller the result is partial.
//
// Authentication is either an API token (basic auth "email/token:key") or an
// OAuth bearer token.
package zendesk
