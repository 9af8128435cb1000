package modrinth

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/modman/pkg/errors"
	"github.com/matzehuels/modman/pkg/integrations"
	"github.com/matzehuels/modman/pkg/integrity"
)

// DefaultBaseURL is the public Modrinth v2 API.
const DefaultBaseURL = "https://api.modrinth.com/v2"

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 100
)

// Client provides access to the Modrinth API.
//
// Batch lookups tolerate bad data: every item in a response is decoded and
// validated on its own, and an item that fails is logged and dropped instead
// of failing the batch. Unknown ids are simply absent from the result.
//
// All methods are safe for concurrent use.
type Client struct {
	*integrations.Client
	logger *log.Logger
}

// NewClient creates a Modrinth client. BaseURL defaults to [DefaultBaseURL]
// and Namespace to "modrinth:".
func NewClient(opts integrations.Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Namespace == "" {
		opts.Namespace = "modrinth:"
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		Client: integrations.NewClient(opts),
		logger: logger,
	}
}

// VersionFilter narrows [Client.FetchProjectVersions]. Zero fields do not filter.
type VersionFilter struct {
	Loaders      []string // e.g. "fabric", "forge"
	GameVersions []string // e.g. "1.20.1"
	Featured     *bool
}

// SearchOptions controls [Client.Search].
type SearchOptions struct {
	Query  string
	Limit  int    // 1..100, default 10
	Offset int    // Results to skip
	Index  string // One of the Index* constants; default relevance
}

// FetchProjects retrieves projects by id or slug in one request.
// An empty ids slice returns nil without contacting the registry.
//
// If refresh is true, the metadata cache is bypassed.
func (c *Client) FetchProjects(ctx context.Context, ids []string, refresh bool) ([]Project, error) {
	raws, err := c.fetchBatch(ctx, "projects", ids, refresh)
	if err != nil || raws == nil {
		return nil, err
	}
	return decodeAll[Project](c.logger, "project", raws), nil
}

// FetchProject retrieves one project by id or slug. It returns nil, nil when
// the project does not exist. When the batch answer holds several records,
// the last one is returned.
func (c *Client) FetchProject(ctx context.Context, id string, refresh bool) (*Project, error) {
	projects, err := c.FetchProjects(ctx, []string{id}, refresh)
	if err != nil || len(projects) == 0 {
		return nil, err
	}
	return &projects[len(projects)-1], nil
}

// FetchVersions retrieves versions by id in one request.
// An empty ids slice returns nil without contacting the registry.
func (c *Client) FetchVersions(ctx context.Context, ids []string, refresh bool) ([]Version, error) {
	raws, err := c.fetchBatch(ctx, "versions", ids, refresh)
	if err != nil || raws == nil {
		return nil, err
	}
	return decodeAll[Version](c.logger, "version", raws), nil
}

// FetchVersion retrieves one version by id, or nil, nil when it does not exist.
func (c *Client) FetchVersion(ctx context.Context, id string, refresh bool) (*Version, error) {
	versions, err := c.FetchVersions(ctx, []string{id}, refresh)
	if err != nil || len(versions) == 0 {
		return nil, err
	}
	return &versions[len(versions)-1], nil
}

// FetchProjectVersions lists the versions of a project, optionally filtered
// by loader, game version and featured flag.
func (c *Client) FetchProjectVersions(ctx context.Context, project string, filter VersionFilter, refresh bool) ([]Version, error) {
	if err := errs.ValidateIdentifier(project); err != nil {
		return nil, err
	}

	query := url.Values{}
	if len(filter.Loaders) > 0 {
		query.Set("loaders", integrations.EncodeList(filter.Loaders))
	}
	if len(filter.GameVersions) > 0 {
		query.Set("game_versions", integrations.EncodeList(filter.GameVersions))
	}
	if filter.Featured != nil {
		query.Set("featured", strconv.FormatBool(*filter.Featured))
	}

	path := "/project/" + url.PathEscape(project) + "/version"
	key := "project_versions:" + project + "?" + query.Encode()

	var raws []json.RawMessage
	err := c.Cached(ctx, key, refresh, &raws, func() error {
		return c.Get(ctx, path, query, &raws)
	})
	if err != nil {
		return nil, err
	}
	return decodeAll[Version](c.logger, "version", raws), nil
}

// FetchVersionByFileHash finds the version that published a file with the
// given digest. algo defaults to sha1; sha512 is also accepted by the
// registry. It returns nil, nil when no version matches, and also when the
// registry's answer cannot be decoded.
func (c *Client) FetchVersionByFileHash(ctx context.Context, hash string, algo integrity.Algorithm, refresh bool) (*Version, error) {
	if algo == "" {
		algo = integrity.SHA1
	}
	if algo != integrity.SHA1 && algo != integrity.SHA512 {
		return nil, errs.New(errs.ErrCodeInvalidInput, "file hash lookup supports sha1 and sha512, not %s", algo)
	}
	hash = strings.ToLower(strings.TrimSpace(hash))
	if err := errs.ValidateHexDigest(hash, algo.Size()); err != nil {
		return nil, err
	}

	path := "/version_file/" + hash
	query := url.Values{"algorithm": {string(algo)}}

	var raw json.RawMessage
	err := c.Cached(ctx, "version_file:"+string(algo)+":"+hash, refresh, &raw, func() error {
		return c.Get(ctx, path, query, &raw)
	})
	if errors.Is(err, integrations.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	v, err := decodeOne[Version](raw)
	if err != nil {
		c.logger.Warn("failed to parse version", "hash", hash, "err", err)
		return nil, nil
	}
	return v, nil
}

// Search queries the project index.
func (c *Client) Search(ctx context.Context, opts SearchOptions) (*SearchResultPage, error) {
	limit := opts.Limit
	if limit == 0 {
		limit = defaultSearchLimit
	}
	if limit < 1 || limit > maxSearchLimit {
		return nil, errs.New(errs.ErrCodeInvalidInput, "search limit must be between 1 and %d, got %d", maxSearchLimit, opts.Limit)
	}
	if opts.Offset < 0 {
		return nil, errs.New(errs.ErrCodeInvalidInput, "search offset must not be negative")
	}
	index := opts.Index
	if index == "" {
		index = IndexRelevance
	}
	switch index {
	case IndexRelevance, IndexDownloads, IndexFollows, IndexNewest, IndexUpdated:
	default:
		return nil, errs.New(errs.ErrCodeInvalidInput, "unknown search index %q", index)
	}

	query := url.Values{
		"query":  {opts.Query},
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(opts.Offset)},
		"index":  {index},
	}

	var resp struct {
		Hits      []json.RawMessage `json:"hits"`
		Offset    int               `json:"offset"`
		Limit     int               `json:"limit"`
		TotalHits int               `json:"total_hits"`
	}
	if err := c.Get(ctx, "/search", query, &resp); err != nil {
		return nil, err
	}
	return &SearchResultPage{
		Hits:      decodeAll[SearchHit](c.logger, "search hit", resp.Hits),
		Offset:    resp.Offset,
		Limit:     resp.Limit,
		TotalHits: resp.TotalHits,
	}, nil
}

// fetchBatch issues GET /<endpoint>?ids=[...] and returns the raw items.
// It returns nil, nil for an empty ids slice.
func (c *Client) fetchBatch(ctx context.Context, endpoint string, ids []string, refresh bool) ([]json.RawMessage, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	for _, id := range ids {
		if err := errs.ValidateIdentifier(id); err != nil {
			return nil, err
		}
	}

	encoded := integrations.EncodeList(ids)
	query := url.Values{"ids": {encoded}}

	var raws []json.RawMessage
	err := c.Cached(ctx, endpoint+":"+encoded, refresh, &raws, func() error {
		return c.Get(ctx, "/"+endpoint, query, &raws)
	})
	if err != nil {
		return nil, err
	}
	if raws == nil {
		raws = []json.RawMessage{}
	}
	return raws, nil
}

// record is implemented by pointers to the registry record types.
type record[T any] interface {
	*T
	validate() error
}

func decodeOne[T any, P record[T]](raw json.RawMessage) (*T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	if err := P(&v).validate(); err != nil {
		return nil, err
	}
	return &v, nil
}

// decodeAll decodes every item independently. Items that fail to decode or
// validate are logged and skipped.
func decodeAll[T any, P record[T]](logger *log.Logger, kind string, raws []json.RawMessage) []T {
	out := make([]T, 0, len(raws))
	for i, raw := range raws {
		v, err := decodeOne[T, P](raw)
		if err != nil {
			logger.Warn("failed to parse "+kind, "index", i, "err", err)
			continue
		}
		out = append(out, *v)
	}
	return out
}
