// Package api is the admin HTTP surface of entitykit.
//
// It serves liveness (/healthz), Prometheus metrics (/metrics), the
// capability bindings of the instance registry (/instances) and a
// read-only view of stored entities (/entities/{kind}).
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
