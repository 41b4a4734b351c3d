package server

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"

	"github.com/chazu/gametags/archive"
	"github.com/chazu/gametags/tags"
)

// errRebuildDisabled is returned by Rebuild unless the server allows it.
var errRebuildDisabled = errors.New("rebuild is disabled on this server")

// TagService implements the TagService Connect handlers.
type TagService struct {
	worker       *RegistryWorker
	allowRebuild bool
}

// NewTagService creates a TagService.
func NewTagService(worker *RegistryWorker, allowRebuild bool) *TagService {
	return &TagService{worker: worker, allowRebuild: allowRebuild}
}

// RequestTag looks up a tag by complete name. A miss is not an error; the
// response has Valid false.
func (s *TagService) RequestTag(
	ctx context.Context,
	req *connect.Request[TagRequest],
) (*connect.Response[TagInfo], error) {
	if req.Msg.Name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("name is required"))
	}
	result, err := s.worker.Do(func(r *tags.Registry) any {
		t := r.RequestTag(req.Msg.Name, false)
		info := &TagInfo{Name: req.Msg.Name, Valid: t.IsValid()}
		if t.IsValid() {
			info.Category = r.Category(t)
			info.NetIndex = uint16(r.NetIndexFromTag(t))
		}
		return info
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(result.(*TagInfo)), nil
}

// TagParents returns the tag and all its ancestors.
func (s *TagService) TagParents(
	ctx context.Context,
	req *connect.Request[TagRequest],
) (*connect.Response[TagListResponse], error) {
	return s.related(req.Msg.Name, (*tags.Registry).TagParents)
}

// TagChildren returns every descendant of the tag.
func (s *TagService) TagChildren(
	ctx context.Context,
	req *connect.Request[TagRequest],
) (*connect.Response[TagListResponse], error) {
	return s.related(req.Msg.Name, (*tags.Registry).TagChildren)
}

func (s *TagService) related(name string, fn func(*tags.Registry, tags.Tag) tags.Container) (*connect.Response[TagListResponse], error) {
	if name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("name is required"))
	}
	result, err := s.worker.Do(func(r *tags.Registry) any {
		t := r.RequestTag(name, false)
		if !t.IsValid() {
			return fmt.Errorf("tag %q not found", name)
		}
		return &TagListResponse{Tags: fn(r, t).Names()}
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if errVal, ok := result.(error); ok {
		return nil, connect.NewError(connect.CodeNotFound, errVal)
	}
	return connect.NewResponse(result.(*TagListResponse)), nil
}

// MatchQuery evaluates an archived query against the named tags. Names go
// through the registry's redirects; unknown names are dropped.
func (s *TagService) MatchQuery(
	ctx context.Context,
	req *connect.Request[MatchQueryRequest],
) (*connect.Response[MatchQueryResponse], error) {
	result, err := s.worker.Do(func(r *tags.Registry) any {
		q, err := archive.UnmarshalQuery(r, req.Msg.Query)
		if err != nil {
			return err
		}
		subject := r.RedirectTags(req.Msg.Tags)
		return &MatchQueryResponse{Matches: q.Matches(subject), Description: q.Description()}
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if errVal, ok := result.(error); ok {
		return nil, connect.NewError(connect.CodeInvalidArgument, errVal)
	}
	return connect.NewResponse(result.(*MatchQueryResponse)), nil
}

// NetIndexTable returns the serving registry's replication table so peers
// can verify they decode indices identically.
func (s *TagService) NetIndexTable(
	ctx context.Context,
	req *connect.Request[NetIndexTableRequest],
) (*connect.Response[NetIndexTableResponse], error) {
	result, err := s.worker.Do(func(r *tags.Registry) any {
		digest := r.NetIndexDigest()
		return &NetIndexTableResponse{
			Names:        r.NetIndexTable(),
			Digest:       digest[:],
			TrueBits:     r.NetIndexTrueBitNum(),
			FirstSegment: r.FirstBitSegment(),
		}
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(result.(*NetIndexTableResponse)), nil
}

// Rebuild destroys and reloads the dictionary from its sources.
func (s *TagService) Rebuild(
	ctx context.Context,
	req *connect.Request[RebuildRequest],
) (*connect.Response[RebuildResponse], error) {
	if !s.allowRebuild {
		return nil, connect.NewError(connect.CodePermissionDenied, errRebuildDisabled)
	}
	result, err := s.worker.Do(func(r *tags.Registry) any {
		if err := r.RebuildTree(ctx); err != nil {
			return err
		}
		return &RebuildResponse{NumTags: r.NumTags()}
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if errVal, ok := result.(error); ok {
		return nil, connect.NewError(connect.CodeUnavailable, errVal)
	}
	return connect.NewResponse(result.(*RebuildResponse)), nil
}
