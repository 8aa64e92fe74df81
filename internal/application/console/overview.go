package console

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sparknexora/backoffice/internal/application/collection"
	"github.com/sparknexora/backoffice/internal/domain/contact"
	"github.com/sparknexora/backoffice/internal/infrastructure/apiclient"
	"github.com/sparknexora/backoffice/internal/infrastructure/logger"
)

// Overview is the dashboard landing view
type Overview struct {
	Stats       contact.Stats       `json:"stats"`
	Recent      []contact.Contact   `json:"recent"`
	Payments    *collection.Summary `json:"payments,omitempty"`
	GeneratedAt time.Time           `json:"generatedAt"`
}

// Overview loads the dashboard counters, the latest submissions and the
// payments summary concurrently. Any failure fails the whole overview.
func (c *Console) Overview(ctx context.Context) (Overview, error) {
	_, gen, err := c.requireSession()
	if err != nil {
		return Overview{}, err
	}

	var out Overview
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		resp, err := c.api.Do(gctx, apiclient.Request{Method: http.MethodGet, Path: "/admin/dashboard", Auth: true})
		if err != nil {
			return err
		}
		var raw json.RawMessage
		if err := resp.Decode(&raw); err != nil {
			return err
		}
		stats, err := collection.DecodeStats(raw)
		if err != nil {
			return apiclient.Malformed("dashboard stats: %v", err)
		}
		out.Stats = stats
		return nil
	})

	g.Go(func() error {
		resp, err := c.api.Do(gctx, apiclient.Request{
			Method: http.MethodGet,
			Path:   "/admin/recent",
			Query:  url.Values{"limit": {strconv.Itoa(c.config.RecentLimit)}},
			Auth:   true,
		})
		if err != nil {
			return err
		}
		var raws []json.RawMessage
		if err := resp.Decode(&raws); err != nil {
			return err
		}
		recent := make([]contact.Contact, 0, len(raws))
		for _, raw := range raws {
			item, _, err := collection.DecodeContact(raw)
			if err != nil {
				return apiclient.Malformed("recent contact: %v", err)
			}
			recent = append(recent, item)
		}
		out.Recent = recent
		return nil
	})

	g.Go(func() error {
		page, err := c.paymentsTab.fetcher.FetchPage(gctx, collection.Filter{}, 1, 1)
		if err != nil {
			return err
		}
		out.Payments = page.Summary
		return nil
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			c.unauthorized(ctx, gen)
			return Overview{}, err
		}
		if c.guard.Generation() == gen && ctx.Err() == nil {
			logger.L(ctx, c.logger).Warn("overview failed", zap.String("outcome", apiclient.Outcome(err)), zap.Error(err))
			c.notify.Error("Dashboard Unavailable", operatorMessage(err, "Failed to load dashboard statistics"))
		}
		return Overview{}, err
	}
	if c.guard.Generation() != gen {
		return Overview{}, ErrSignedOut
	}

	out.GeneratedAt = time.Now()
	return out, nil
}
