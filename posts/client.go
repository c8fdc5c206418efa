package posts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reoring/postq/cache"
	"github.com/reoring/postq/query"
)

// Endpoint names the cached queries of the client.
type Endpoint string

const (
	EndpointPosts    Endpoint = "getPosts"
	EndpointPostList Endpoint = "getPostList"
	EndpointPost     Endpoint = "getPost"
)

// ErrUnsettled is returned when a query wait ended before the fetch settled.
var ErrUnsettled = errors.New("posts: query did not settle")

// Client is the post data client. Queries go through the cache; mutations
// invalidate the tags they touch.
type Client struct {
	store   *cache.Store
	q       query.BaseQuery
	schemas Schemas
	newID   func() string
	log     *zap.Logger
	strict  bool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger. It is also handed to the validation
// wrapper.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithStrictTitles additionally requires titles to start with an uppercase
// letter.
func WithStrictTitles() Option {
	return func(c *Client) { c.strict = true }
}

// WithIDGenerator replaces uuid.NewString for new post ids.
func WithIDGenerator(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// NewClient wraps base with schema validation and binds it to store.
func NewClient(base query.BaseQuery, store *cache.Store, opts ...Option) *Client {
	c := &Client{
		store: store,
		newID: uuid.NewString,
		log:   zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	c.schemas = NewSchemas(c.strict)
	c.q = query.WithSchemaValidation(base, query.WithLogger(c.log))
	return c
}

// Schemas returns the schemas the client validates with.
func (c *Client) Schemas() Schemas { return c.schemas }

// Store returns the cache the client writes to.
func (c *Client) Store() *cache.Store { return c.store }

func key(ep Endpoint, arg string) cache.Key { return cache.Key{Endpoint: string(ep), Arg: arg} }

// result unwraps a settled entry into T.
func result[T any](ctx context.Context, e cache.Entry) (T, error) {
	var zero T
	switch e.Status {
	case cache.StatusFulfilled:
		v, ok := e.Data.(T)
		if !ok {
			return zero, fmt.Errorf("posts: %s holds %T", e.Key, e.Data)
		}
		return v, nil
	case cache.StatusRejected:
		return zero, e.Err
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	return zero, ErrUnsettled
}

func (c *Client) fetcher(ep Endpoint, arg string) (cache.Fetcher, error) {
	switch ep {
	case EndpointPosts:
		return c.listFetcher(query.SchemaOf(c.schemas.Posts), func(d any) []string {
			return ids(d.([]Post), func(p Post) string { return p.ID })
		}), nil
	case EndpointPostList:
		return c.listFetcher(query.SchemaOf(c.schemas.List), func(d any) []string {
			return ids(d.([]PostListItem), func(p PostListItem) string { return p.ID })
		}), nil
	case EndpointPost:
		return func(ctx context.Context) (any, *query.APIError, []cache.Tag) {
			res := c.q(ctx, query.Args{
				URL:     "posts/" + url.PathEscape(arg),
				Options: query.Options{DataSchema: query.SchemaOf(c.schemas.Post)},
			})
			return res.Data, res.Err, []cache.Tag{PostTag(arg)}
		}, nil
	default:
		return nil, fmt.Errorf("posts: unknown endpoint %q", ep)
	}
}

func ids[T any](items []T, id func(T) string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, id(it))
	}
	return out
}

// listFetcher fetches the collection. Success tags every post plus the list;
// failure tags only the list.
func (c *Client) listFetcher(schema query.Validator, idsOf func(any) []string) cache.Fetcher {
	return func(ctx context.Context) (any, *query.APIError, []cache.Tag) {
		res := c.q(ctx, query.Args{URL: "posts", Options: query.Options{DataSchema: schema}})
		if res.Err != nil {
			return res.Data, res.Err, []cache.Tag{ListTag()}
		}
		var tags []cache.Tag
		for _, id := range idsOf(res.Data) {
			tags = append(tags, PostTag(id))
		}
		return res.Data, nil, append(tags, ListTag())
	}
}

// GetPosts returns every post.
func (c *Client) GetPosts(ctx context.Context) ([]Post, error) {
	f, _ := c.fetcher(EndpointPosts, "")
	return result[[]Post](ctx, c.store.Query(ctx, key(EndpointPosts, ""), f))
}

// GetPostList returns every post in list form.
func (c *Client) GetPostList(ctx context.Context) ([]PostListItem, error) {
	f, _ := c.fetcher(EndpointPostList, "")
	return result[[]PostListItem](ctx, c.store.Query(ctx, key(EndpointPostList, ""), f))
}

// GetPost returns one post.
func (c *Client) GetPost(ctx context.Context, id string) (Post, error) {
	f, _ := c.fetcher(EndpointPost, id)
	return result[Post](ctx, c.store.Query(ctx, key(EndpointPost, id), f))
}

// Subscribe streams the cache entry of endpoint. arg is the post id for
// EndpointPost and ignored otherwise.
func (c *Client) Subscribe(ctx context.Context, ep Endpoint, arg string) (*cache.Subscription, error) {
	if ep != EndpointPost {
		arg = ""
	}
	f, err := c.fetcher(ep, arg)
	if err != nil {
		return nil, err
	}
	return c.store.Subscribe(ctx, key(ep, arg), f), nil
}

// AddPost creates a post. The id is generated here when the draft has none.
// No optimistic insert happens; the list is invalidated on success.
func (c *Client) AddPost(ctx context.Context, d Draft) (Post, error) {
	if d.ID == "" {
		d.ID = c.newID()
	}
	res := c.q(ctx, query.Args{
		Method: http.MethodPost,
		URL:    "posts",
		Body:   d,
		Options: query.Options{
			ArgsSchema: query.SchemaOf(c.schemas.Draft),
			DataSchema: query.SchemaOf(c.schemas.Post),
		},
	})
	p, apiErr := query.Typed[Post](res)
	if apiErr != nil {
		return Post{}, apiErr
	}
	c.store.Invalidate(ListTag())
	return p, nil
}

// UpdatePost patches post id. The cached post shows the patch immediately;
// a failed request puts the previous value back and invalidates nothing.
func (c *Client) UpdatePost(ctx context.Context, id string, patch Patch) (Post, error) {
	tx := c.store.Patch(key(EndpointPost, id), func(d any) any {
		p, ok := d.(Post)
		if !ok {
			return d
		}
		return patch.Apply(p)
	})
	res := c.q(ctx, query.Args{
		Method: http.MethodPut,
		URL:    "posts/" + url.PathEscape(id),
		Body:   patch,
		Options: query.Options{
			ArgsSchema: query.SchemaOf(c.schemas.Patch),
			DataSchema: query.SchemaOf(c.schemas.Post),
		},
	})
	p, apiErr := query.Typed[Post](res)
	if apiErr != nil {
		restored := tx.Rollback()
		c.log.Debug("update failed",
			zap.String("id", id),
			zap.Bool("rolled_back", restored),
			zap.Error(apiErr))
		return Post{}, apiErr
	}
	if res.Data != nil {
		tx.Commit(p)
	} else {
		tx.Commit(nil)
	}
	c.store.Invalidate(PostTag(id))
	return p, nil
}

// DeletePost deletes post id and invalidates everything tagged with it.
func (c *Client) DeletePost(ctx context.Context, id string) (DeleteResult, error) {
	res := c.q(ctx, query.Args{
		Method:  http.MethodDelete,
		URL:     "posts/" + url.PathEscape(id),
		Options: query.Options{DataSchema: query.SchemaOf(c.schemas.Delete)},
	})
	out, apiErr := query.Typed[DeleteResult](res)
	if apiErr != nil {
		return DeleteResult{}, apiErr
	}
	c.store.Invalidate(PostTag(id))
	return out, nil
}
