package runner

import (
	"context"

	"github.com/shouni/go-ehon-kit/internal/config"
	"github.com/shouni/go-ehon-kit/pkg/domain"
	"github.com/shouni/go-ehon-kit/pkg/publisher"
)

// PublisherRunner はパブリッシュ処理のインターフェースです。
type PublisherRunner interface {
	Run(ctx context.Context, s *domain.Story) (publisher.PublishResult, error)
}

// DefaultPublisherRunner は pkg/publisher を利用した標準実装です。
type DefaultPublisherRunner struct {
	options   config.GenerateOptions
	publisher *publisher.BookPublisher
}

func NewDefaultPublisherRunner(options config.GenerateOptions, pub *publisher.BookPublisher) *DefaultPublisherRunner {
	return &DefaultPublisherRunner{
		options:   options,
		publisher: pub,
	}
}

func (pr *DefaultPublisherRunner) Run(ctx context.Context, s *domain.Story) (publisher.PublishResult, error) {
	// internal/config の値を pkg/publisher 用の構造体に詰め替えます。
	opts := publisher.Options{
		OutputDir: pr.options.BookRoot,
	}

	return pr.publisher.Publish(ctx, s, opts)
}
