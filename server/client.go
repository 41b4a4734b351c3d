package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/chazu/gametags/archive"
	"github.com/chazu/gametags/query"
	"github.com/chazu/gametags/tags"
)

// ErrParityMismatch is returned by CheckParity when the peers' net index
// tables differ.
var ErrParityMismatch = errors.New("net index tables differ")

// Client calls a remote TagService.
type Client struct {
	requestTag    *connect.Client[TagRequest, TagInfo]
	tagParents    *connect.Client[TagRequest, TagListResponse]
	tagChildren   *connect.Client[TagRequest, TagListResponse]
	matchQuery    *connect.Client[MatchQueryRequest, MatchQueryResponse]
	netIndexTable *connect.Client[NetIndexTableRequest, NetIndexTableResponse]
	rebuild       *connect.Client[RebuildRequest, RebuildResponse]
}

// NewClient creates a client for the service at baseURL. A nil
// httpClient uses http.DefaultClient.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{Codec()}, opts...)
	return &Client{
		requestTag:    connect.NewClient[TagRequest, TagInfo](httpClient, baseURL+RequestTagProcedure, opts...),
		tagParents:    connect.NewClient[TagRequest, TagListResponse](httpClient, baseURL+TagParentsProcedure, opts...),
		tagChildren:   connect.NewClient[TagRequest, TagListResponse](httpClient, baseURL+TagChildrenProcedure, opts...),
		matchQuery:    connect.NewClient[MatchQueryRequest, MatchQueryResponse](httpClient, baseURL+MatchQueryProcedure, opts...),
		netIndexTable: connect.NewClient[NetIndexTableRequest, NetIndexTableResponse](httpClient, baseURL+NetIndexTableProcedure, opts...),
		rebuild:       connect.NewClient[RebuildRequest, RebuildResponse](httpClient, baseURL+RebuildProcedure, opts...),
	}
}

// RequestTag looks up name on the server.
func (c *Client) RequestTag(ctx context.Context, name string) (*TagInfo, error) {
	resp, err := c.requestTag.CallUnary(ctx, connect.NewRequest(&TagRequest{Name: name}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// TagParents returns name and its ancestors as known to the server.
func (c *Client) TagParents(ctx context.Context, name string) ([]string, error) {
	resp, err := c.tagParents.CallUnary(ctx, connect.NewRequest(&TagRequest{Name: name}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Tags, nil
}

// TagChildren returns the descendants of name as known to the server.
func (c *Client) TagChildren(ctx context.Context, name string) ([]string, error) {
	resp, err := c.tagChildren.CallUnary(ctx, connect.NewRequest(&TagRequest{Name: name}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Tags, nil
}

// MatchQuery evaluates q remotely against subject.
func (c *Client) MatchQuery(ctx context.Context, q query.Query, subject tags.Container) (bool, error) {
	data, err := archive.MarshalQuery(q)
	if err != nil {
		return false, err
	}
	resp, err := c.matchQuery.CallUnary(ctx, connect.NewRequest(&MatchQueryRequest{
		Query: data,
		Tags:  subject.Names(),
	}))
	if err != nil {
		return false, err
	}
	return resp.Msg.Matches, nil
}

// NetIndexTable fetches the server's replication table.
func (c *Client) NetIndexTable(ctx context.Context) (*NetIndexTableResponse, error) {
	resp, err := c.netIndexTable.CallUnary(ctx, connect.NewRequest(&NetIndexTableRequest{}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// Rebuild asks the server to reload its dictionary.
func (c *Client) Rebuild(ctx context.Context) (int, error) {
	resp, err := c.rebuild.CallUnary(ctx, connect.NewRequest(&RebuildRequest{}))
	if err != nil {
		return 0, err
	}
	return resp.Msg.NumTags, nil
}

// CheckParity verifies that reg and the server assign identical net
// indices. On mismatch the error names the first differing slot.
func (c *Client) CheckParity(ctx context.Context, reg *tags.Registry) error {
	remote, err := c.NetIndexTable(ctx)
	if err != nil {
		return fmt.Errorf("fetching remote table: %w", err)
	}
	local := reg.NetIndexDigest()
	if bytes.Equal(remote.Digest, local[:]) {
		return nil
	}

	names := reg.NetIndexTable()
	n := min(len(names), len(remote.Names))
	for i := 0; i < n; i++ {
		if names[i] != remote.Names[i] {
			return fmt.Errorf("%w: index %d is %q locally, %q remotely", ErrParityMismatch, i, names[i], remote.Names[i])
		}
	}
	return fmt.Errorf("%w: %d local tags, %d remote", ErrParityMismatch, len(names), len(remote.Names))
}
