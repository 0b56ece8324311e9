// Package content resolves the content items comments are attached to.
package content

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/bissquit/comment-notifications/internal/domain"
)

// Registry errors.
var (
	ErrUnknownType = errors.New("content type is not registered")
	ErrNotFound    = errors.New("content item not found")
)

// Resolver gives access to the items of one content type.
type Resolver interface {
	Exists(ctx context.Context, id int64) (bool, error)
	FetchTitle(ctx context.Context, id int64) (string, error)
}

// Registry maps content type tags to resolvers.
type Registry struct {
	mu        sync.RWMutex
	resolvers map[string]Resolver
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{resolvers: make(map[string]Resolver)}
}

// Register binds a type tag to a resolver, replacing any previous binding.
func (r *Registry) Register(typeName string, resolver Resolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvers[typeName] = resolver
}

// Types returns the registered type tags in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.resolvers))
	for t := range r.resolvers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func (r *Registry) lookup(typeName string) (Resolver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	resolver, ok := r.resolvers[typeName]
	return resolver, ok
}

// Exists reports whether the item exists. Unknown types report ErrUnknownType.
func (r *Registry) Exists(ctx context.Context, typeName string, id int64) (bool, error) {
	resolver, ok := r.lookup(typeName)
	if !ok {
		return false, ErrUnknownType
	}
	return resolver.Exists(ctx, id)
}

// Resolve fetches the item identified by (typeName, id).
func (r *Registry) Resolve(ctx context.Context, typeName string, id int64) (*domain.ContentItem, error) {
	resolver, ok := r.lookup(typeName)
	if !ok {
		return nil, ErrUnknownType
	}

	exists, err := resolver.Exists(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("check %s %d: %w", typeName, id, err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	title, err := resolver.FetchTitle(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %d title: %w", typeName, id, err)
	}

	return &domain.ContentItem{Type: typeName, ID: id, Title: title}, nil
}
