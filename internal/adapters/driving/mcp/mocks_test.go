package mcp

import (
	"context"

	"github.com/lorekeep/lorekeep-cli/internal/core/ports/driving"
)

// mockKnowledgeService is a hand-rolled mock for driving.KnowledgeService.
type mockKnowledgeService struct {
	buildFunc   func(ctx context.Context, force bool) (*driving.BuildReport, error)
	contextFunc func(ctx context.Context, query string, topK int) (string, error)
	statusFunc  func(ctx context.Context) (*driving.IndexStatus, error)
}

var _ driving.KnowledgeService = (*mockKnowledgeService)(nil)

func (m *mockKnowledgeService) BuildIndex(ctx context.Context, force bool) (*driving.BuildReport, error) {
	if m.buildFunc != nil {
		return m.buildFunc(ctx, force)
	}
	return &driving.BuildReport{}, nil
}

func (m *mockKnowledgeService) ContextForQuery(ctx context.Context, query string, topK int) (string, error) {
	if m.contextFunc != nil {
		return m.contextFunc(ctx, query, topK)
	}
	return "", nil
}

func (m *mockKnowledgeService) Status(ctx context.Context) (*driving.IndexStatus, error) {
	if m.statusFunc != nil {
		return m.statusFunc(ctx)
	}
	return &driving.IndexStatus{}, nil
}

func (m *mockKnowledgeService) Close(context.Context) error {
	return nil
}
