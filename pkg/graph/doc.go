// Package graph implements a paged listing client for Microsoft Graph and
// Azure Resource Manager.
//
// Requests carry a bearer token from an oauth2.TokenSource and the
// "ConsistencyLevel: eventual" header. Throttling (429) and server errors
// (5xx) are retried with a linear backoff based on Retry-After; exhausted
// retries surface as a StructuredError instead of a truncated listing.
//
// Items are streamed page by page:
//
//	c := graph.NewClient(ts)
//	for u, err := range graph.Decode[User](ctx, c, usersURL) {
//	    if err != nil {
//	        return err
//	    }
//	    ...
//	}
package graph
