// Package httpclient issues the HTTP requests of a benchmark.
//
// A [RequestSpec] describes the request (method, target, headers and an inline
// or file-sourced body). [NewRequestBuilder] validates it once and produces a
// [RequestBuilder] that can build any number of identical requests. [Issuer]
// sends one request per call and captures every failure mode in the returned
// [metrics.Outcome]; it never returns an error:
//
//	builder, err := httpclient.NewRequestBuilder(spec)
//	if err != nil {
//		return err
//	}
//	issuer := httpclient.NewIssuer(httpclient.NewClient(30*time.Second, 64), builder)
//	outcome := issuer.Issue(ctx)
//
// Latency is measured from just before the request is sent until the response
// body has been fully read (or the request failed). Responses with a status
// outside 200-399 are failures of kind [metrics.ErrorKindStatus].
package httpclient
