package httpadapter

import (
	"strings"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kirillkom/image-to-excel/internal/core/ports"
)

const sessionIDHeader = "X-Session-Id"

// WorkflowFactory builds the workflow that backs one new session.
type WorkflowFactory func() ports.ConversionWorkflow

// sessionStore keeps the most recently used sessions; the least recently used
// one is dropped once the store is full.
type sessionStore struct {
	cache    *lru.Cache[string, ports.ConversionWorkflow]
	factory  WorkflowFactory
	onResize func(int)
}

func newSessionStore(size int, factory WorkflowFactory, onResize func(int)) (*sessionStore, error) {
	if size <= 0 {
		size = 256
	}
	if onResize == nil {
		onResize = func(int) {}
	}
	cache, err := lru.New[string, ports.ConversionWorkflow](size)
	if err != nil {
		return nil, err
	}
	return &sessionStore{cache: cache, factory: factory, onResize: onResize}, nil
}

func (s *sessionStore) create() (string, ports.ConversionWorkflow) {
	id := uuid.NewString()
	workflow := s.factory()
	s.cache.Add(id, workflow)
	s.onResize(s.cache.Len())
	return id, workflow
}

func (s *sessionStore) get(id string) (ports.ConversionWorkflow, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, false
	}
	return s.cache.Get(id)
}

func (s *sessionStore) len() int {
	return s.cache.Len()
}
