// Package download fetches remote resources over HTTP with bounded retries.
//
// Client.Fetch streams a source video to <dir>/source<ext>; Client.GetJSON
// decodes catalog documents for the recommendation refresher. Both retry
// transport errors, 429 and 5xx responses, honouring Retry-After, and report
// any remaining failure as services.ErrTransient.
package download
