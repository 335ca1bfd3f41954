package ports

import (
	"attendance-agent/internal/entity"
	"context"
	"time"
)

type BrowserManager interface {
	Launch(ctx context.Context) error
	Close(ctx context.Context) error
	Navigate(ctx context.Context, url string) error
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	WaitForLoad(ctx context.Context) error
	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector string, value string) error
	Press(ctx context.Context, selector string, key string) error
	FindElements(ctx context.Context, query string) ([]entity.Element, error)
	PageText(ctx context.Context) (string, error)
	Content(ctx context.Context) (string, error)
	Screenshot(ctx context.Context, path string) error
	GetPageState(ctx context.Context) (*entity.PageState, error)
	IsReady() bool
}

type DiagnosticsSink interface {
	Capture(ctx context.Context, tag string)
}

type OutcomeRecorder interface {
	Record(ctx context.Context, report *entity.Report) error
}
