// Package collection reads and mutates the paginated resource collections
// kept by the external backend. The backend's loose payload shapes are
// resolved here, once; callers only ever see typed items and typed errors.
package collection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sparknexora/backoffice/internal/infrastructure/apiclient"
	"github.com/sparknexora/backoffice/internal/infrastructure/logger"
)

// Filter narrows a collection. Empty fields do not constrain.
type Filter struct {
	Status   string `json:"status,omitempty" form:"status"`
	Priority string `json:"priority,omitempty" form:"priority"`
	Service  string `json:"service,omitempty" form:"service"`
	Search   string `json:"search,omitempty" form:"search"`
}

// Normalize trims every value
func (f Filter) Normalize() Filter {
	return Filter{
		Status:   strings.TrimSpace(f.Status),
		Priority: strings.TrimSpace(f.Priority),
		Service:  strings.TrimSpace(f.Service),
		Search:   strings.TrimSpace(f.Search),
	}
}

// IsZero reports whether f places no constraint
func (f Filter) IsZero() bool {
	return f.Normalize() == Filter{}
}

// Query renders the filter as backend query parameters
func (f Filter) Query() url.Values {
	f = f.Normalize()
	q := url.Values{}
	for k, v := range map[string]string{
		"status":   f.Status,
		"priority": f.Priority,
		"service":  f.Service,
		"search":   f.Search,
	} {
		if v != "" {
			q.Set(k, v)
		}
	}
	return q
}

// Summary carries the aggregates some collections publish beside a page
type Summary struct {
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	StatusCounts map[string]int  `json:"statusCounts"`
}

// Page is one fetched page, in backend order
type Page[T any] struct {
	Items      []T      `json:"items"`
	Page       int      `json:"page"`
	TotalPages int      `json:"totalPages"`
	Total      int      `json:"total"`
	Summary    *Summary `json:"summary,omitempty"`
}

// Decoder maps one backend record to an item and returns the item's id
type Decoder[T any] func(raw json.RawMessage) (T, string, error)

// Transport is the slice of the backend client collections need
type Transport interface {
	Do(ctx context.Context, req apiclient.Request) (*apiclient.Response, error)
}

// Client is bound to one resource path such as "/contacts"
type Client[T any] struct {
	api       Transport
	path      string
	itemKeys  []string
	decode    Decoder[T]
	statusKey func(string) string
	logger    *zap.Logger
}

// New binds a client to path. itemKeys name the fields that may carry the
// record list, tried in order.
func New[T any](api Transport, path string, decode Decoder[T], log *zap.Logger, itemKeys ...string) *Client[T] {
	if log == nil {
		log = zap.NewNop()
	}
	if len(itemKeys) == 0 {
		itemKeys = []string{"items"}
	}
	return &Client[T]{
		api:      api,
		path:     "/" + strings.Trim(path, "/"),
		itemKeys: itemKeys,
		decode:   decode,
		logger:   log.Named("collection").With(zap.String("resource", path)),
	}
}

// Path is the resource path the client is bound to
func (c *Client[T]) Path() string { return c.path }

// FetchPage reads one page of the collection under f. It never retains
// results; keeping the previous page on failure is the caller's choice.
func (c *Client[T]) FetchPage(ctx context.Context, f Filter, page, pageSize int) (Page[T], error) {
	if page < 1 {
		page = 1
	}
	q := f.Query()
	q.Set("page", strconv.Itoa(page))
	if pageSize > 0 {
		q.Set("limit", strconv.Itoa(pageSize))
	}

	resp, err := c.api.Do(ctx, apiclient.Request{
		Method: http.MethodGet,
		Path:   c.path,
		Query:  q,
		Auth:   true,
	})
	if err != nil {
		return Page[T]{}, err
	}

	out, err := c.decodePage(resp, page, pageSize)
	if err != nil {
		logger.L(ctx, c.logger).Warn("unmappable page", zap.Int("page", page), zap.Error(err))
		return Page[T]{}, err
	}
	return out, nil
}

type pagination struct {
	Page        *int `json:"page"`
	CurrentPage *int `json:"currentPage"`
	TotalPages  *int `json:"totalPages"`
	Pages       *int `json:"pages"`
	Total       *int `json:"total"`
}

func (c *Client[T]) decodePage(resp *apiclient.Response, page, pageSize int) (Page[T], error) {
	payload, err := apiclient.Unwrap(resp.StatusCode, resp.Body)
	if err != nil {
		return Page[T]{}, err
	}
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return Page[T]{}, apiclient.Malformed("empty %s page", c.path)
	}

	var (
		rawItems []json.RawMessage
		fields   map[string]json.RawMessage
	)
	if payload[0] == '[' {
		if err := json.Unmarshal(payload, &rawItems); err != nil {
			return Page[T]{}, apiclient.Malformed("decode %s list: %v", c.path, err)
		}
	} else {
		if err := json.Unmarshal(payload, &fields); err != nil {
			return Page[T]{}, apiclient.Malformed("decode %s page: %v", c.path, err)
		}
		list, ok := firstPresent(fields, c.itemKeys)
		if !ok {
			return Page[T]{}, apiclient.Malformed("%s page has no %s", c.path, strings.Join(c.itemKeys, "/"))
		}
		if err := json.Unmarshal(list, &rawItems); err != nil {
			return Page[T]{}, apiclient.Malformed("decode %s items: %v", c.path, err)
		}
	}

	out := Page[T]{Items: make([]T, 0, len(rawItems)), Page: page}
	seen := make(map[string]struct{}, len(rawItems))
	for i, raw := range rawItems {
		item, id, err := c.decode(raw)
		if err != nil {
			return Page[T]{}, apiclient.Malformed("%s item %d: %v", c.path, i, err)
		}
		if id == "" {
			return Page[T]{}, apiclient.Malformed("%s item %d has no id", c.path, i)
		}
		if _, dup := seen[id]; dup {
			return Page[T]{}, apiclient.Malformed("%s page repeats id %q", c.path, id)
		}
		seen[id] = struct{}{}
		out.Items = append(out.Items, item)
	}

	if err := c.applyPagination(&out, fields, pageSize); err != nil {
		return Page[T]{}, err
	}
	summary, err := c.decodeSummary(fields)
	if err != nil {
		return Page[T]{}, err
	}
	out.Summary = summary
	return out, nil
}

// applyPagination reads page counters from a nested "pagination" object or
// from the top level, deriving what the backend left out.
func (c *Client[T]) applyPagination(out *Page[T], fields map[string]json.RawMessage, pageSize int) error {
	var p pagination
	if raw, ok := fields["pagination"]; ok {
		if err := json.Unmarshal(raw, &p); err != nil {
			return apiclient.Malformed("decode %s pagination: %v", c.path, err)
		}
	} else if fields != nil {
		top := map[string]json.RawMessage{}
		for _, k := range []string{"page", "currentPage", "totalPages", "pages", "total"} {
			if v, ok := fields[k]; ok {
				top[k] = v
			}
		}
		if len(top) > 0 {
			raw, _ := json.Marshal(top)
			if err := json.Unmarshal(raw, &p); err != nil {
				return apiclient.Malformed("decode %s pagination: %v", c.path, err)
			}
		}
	}

	switch {
	case p.Page != nil:
		out.Page = *p.Page
	case p.CurrentPage != nil:
		out.Page = *p.CurrentPage
	}
	if p.Total != nil {
		out.Total = *p.Total
	} else {
		out.Total = len(out.Items)
	}
	switch {
	case p.TotalPages != nil:
		out.TotalPages = *p.TotalPages
	case p.Pages != nil:
		out.TotalPages = *p.Pages
	case p.Total != nil && pageSize > 0:
		out.TotalPages = (out.Total + pageSize - 1) / pageSize
	default:
		out.TotalPages = out.Page
	}
	if out.TotalPages < 1 {
		out.TotalPages = 1
	}
	if out.Page < 1 {
		out.Page = 1
	}
	return nil
}

func (c *Client[T]) decodeSummary(fields map[string]json.RawMessage) (*Summary, error) {
	revenue, hasRevenue := fields["totalRevenue"]
	counts, hasCounts := fields["statusCounts"]
	if !hasRevenue && !hasCounts {
		return nil, nil
	}

	s := &Summary{StatusCounts: map[string]int{}}
	if hasRevenue {
		if err := json.Unmarshal(revenue, &s.TotalRevenue); err != nil {
			return nil, apiclient.Malformed("decode %s totalRevenue: %v", c.path, err)
		}
	}
	if hasCounts {
		var raw map[string]int
		if err := json.Unmarshal(counts, &raw); err != nil {
			return nil, apiclient.Malformed("decode %s statusCounts: %v", c.path, err)
		}
		for k, n := range raw {
			if c.statusKey != nil {
				k = c.statusKey(k)
			}
			s.StatusCounts[k] += n
		}
	}
	return s, nil
}

func firstPresent(fields map[string]json.RawMessage, keys []string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := fields[k]; ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return v, true
		}
	}
	for _, k := range keys {
		if _, ok := fields[k]; ok {
			return json.RawMessage("[]"), true
		}
	}
	return nil, false
}

// UpdateItem applies action to one item: PUT /{path}/{id}/{action}
func (c *Client[T]) UpdateItem(ctx context.Context, id, action string, body any) error {
	if id == "" {
		return fmt.Errorf("update %s: empty id", c.path)
	}
	resp, err := c.api.Do(ctx, apiclient.Request{
		Method: http.MethodPut,
		Path:   c.path + "/" + url.PathEscape(id) + "/" + action,
		Route:  c.path + "/:id/" + action,
		Body:   body,
		Auth:   true,
	})
	if err != nil {
		return err
	}
	_, err = apiclient.Unwrap(resp.StatusCode, resp.Body)
	return err
}

// DeleteItem removes one item: DELETE /{path}/{id}
func (c *Client[T]) DeleteItem(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("delete %s: empty id", c.path)
	}
	resp, err := c.api.Do(ctx, apiclient.Request{
		Method: http.MethodDelete,
		Path:   c.path + "/" + url.PathEscape(id),
		Route:  c.path + "/:id",
		Auth:   true,
	})
	if err != nil {
		return err
	}
	_, err = apiclient.Unwrap(resp.StatusCode, resp.Body)
	return err
}
