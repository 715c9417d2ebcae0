// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"fmt"
	"strings"
)

// Router is a [Provider] that dispatches each request to the provider
// registered for the longest matching model-name prefix, falling back
// to a default provider.
type Router struct {
	routes   []route
	fallback Provider
}

type route struct {
	prefix   string
	provider Provider
}

// NewRouter creates a Router that sends unmatched models to fallback.
// A nil fallback makes unmatched models an error.
func NewRouter(fallback Provider) *Router {
	return &Router{fallback: fallback}
}

// Route registers provider for models whose name starts with prefix.
func (router *Router) Route(prefix string, provider Provider) *Router {
	router.routes = append(router.routes, route{prefix: prefix, provider: provider})
	return router
}

// Complete forwards the request to the provider selected for
// request.Model.
func (router *Router) Complete(ctx context.Context, request Request) (*Response, error) {
	provider := router.providerFor(request.Model)
	if provider == nil {
		return nil, fmt.Errorf("llm: no provider for model %q", request.Model)
	}
	return provider.Complete(ctx, request)
}

func (router *Router) providerFor(model string) Provider {
	var selected Provider
	longest := -1
	for _, candidate := range router.routes {
		if strings.HasPrefix(model, candidate.prefix) && len(candidate.prefix) > longest {
			selected = candidate.provider
			longest = len(candidate.prefix)
		}
	}
	if selected != nil {
		return selected
	}
	return router.fallback
}
