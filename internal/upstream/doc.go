// Package upstream guards outbound calls to the Zendesk API.
//
// A single [Budget] is constructed at startup and injected into every
// component that talks to Zendesk. It combines a token bucket, which spaces
// requests to stay under the account's requests-per-minute allowance, with a
// backoff state machine driven by 429 responses:
//
//	available --429--> throttled --> backing_off --retry time elapsed--> available
//
// While backing off, every caller blocks until the retry time passes. The
// wait is the server's Retry-After hint when one is sent, otherwise an
// exponential delay that doubles per consecutive throttle up to a cap and
// resets after one successful call. Rejections that land inside an open
// backoff window share it. A call rejected too many times gets an
// [UnavailableError] instead of retrying forever.
package upstream
