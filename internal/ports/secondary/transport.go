package secondary

import "context"

// ContentTransport is the blocking HTTP transport the engine downloads
// through. Calls block under a bounded timeout on the order of minutes;
// transport and timeout failures surface as ok == false, never as an
// error crossing the boundary.
type ContentTransport interface {
	// Get fetches the body at url.
	Get(ctx context.Context, url string) (body []byte, ok bool)

	// Post sends body to url with the given headers and returns the
	// response body.
	Post(ctx context.Context, url string, body []byte, headers map[string]string) (response []byte, ok bool)
}
