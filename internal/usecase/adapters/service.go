package adapters

import (
	"attendance-agent/internal/entity"
	"context"
)

type AuthService interface {
	Login(ctx context.Context, url, username, password string) error
}

type WorkflowService interface {
	Run(ctx context.Context) (*entity.WorkflowResult, error)
}

type RunService interface {
	Run(ctx context.Context) *entity.Report
}
