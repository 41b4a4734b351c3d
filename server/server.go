// Package server exposes a tag registry over Connect RPC with a CBOR
// codec, and provides the matching client.
package server

import (
	"net/http"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"

	"github.com/chazu/gametags/tags"
)

var log = commonlog.GetLogger("gametags.server")

// TagServer serves one registry.
type TagServer struct {
	worker *RegistryWorker
	mux    *http.ServeMux
}

// ServerOption configures a TagServer.
type ServerOption func(*serverConfig)

type serverConfig struct {
	allowRebuild   bool
	handlerOptions []connect.HandlerOption
}

// WithRebuild enables the Rebuild procedure, which tears the dictionary
// down and reloads it from its sources.
func WithRebuild() ServerOption {
	return func(c *serverConfig) { c.allowRebuild = true }
}

// WithHandlerOptions adds Connect handler options (interceptors, limits).
func WithHandlerOptions(opts ...connect.HandlerOption) ServerOption {
	return func(c *serverConfig) { c.handlerOptions = append(c.handlerOptions, opts...) }
}

// New creates a TagServer for reg. The registry should already be built.
func New(reg *tags.Registry, opts ...ServerOption) *TagServer {
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &TagServer{
		worker: NewRegistryWorker(reg),
		mux:    http.NewServeMux(),
	}
	svc := NewTagService(s.worker, cfg.allowRebuild)

	hopts := append([]connect.HandlerOption{Codec()}, cfg.handlerOptions...)
	s.mux.Handle(RequestTagProcedure, connect.NewUnaryHandler(RequestTagProcedure, svc.RequestTag, hopts...))
	s.mux.Handle(TagParentsProcedure, connect.NewUnaryHandler(TagParentsProcedure, svc.TagParents, hopts...))
	s.mux.Handle(TagChildrenProcedure, connect.NewUnaryHandler(TagChildrenProcedure, svc.TagChildren, hopts...))
	s.mux.Handle(MatchQueryProcedure, connect.NewUnaryHandler(MatchQueryProcedure, svc.MatchQuery, hopts...))
	s.mux.Handle(NetIndexTableProcedure, connect.NewUnaryHandler(NetIndexTableProcedure, svc.NetIndexTable, hopts...))
	s.mux.Handle(RebuildProcedure, connect.NewUnaryHandler(RebuildProcedure, svc.Rebuild, hopts...))

	return s
}

// Handler returns the HTTP handler serving all procedures.
func (s *TagServer) Handler() http.Handler {
	return s.mux
}

// ListenAndServe starts the HTTP server on the given address.
// The address should be in the form "host:port" or ":port".
func (s *TagServer) ListenAndServe(addr string) error {
	log.Noticef("tag service listening on %s", addr)
	log.Infof("  Connect (CBOR): http://%s%s", addr, RequestTagProcedure)
	return http.ListenAndServe(addr, s.mux)
}

// Stop shuts down the server's registry worker.
func (s *TagServer) Stop() {
	s.worker.Stop()
}
