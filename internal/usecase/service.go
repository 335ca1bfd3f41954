package usecase

import (
	"attendance-agent/internal/config"
	"attendance-agent/internal/ports"
	"attendance-agent/internal/usecase/adapters"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	Auth     adapters.AuthService
	Workflow adapters.WorkflowService
	Runner   adapters.RunService
}

type Params struct {
	fx.In

	Logger      *zap.Logger
	Config      *config.Config
	Browser     ports.BrowserManager
	Diagnostics ports.DiagnosticsSink
	Recorders   []ports.OutcomeRecorder `group:"recorders"`
}

func NewUsecase(params Params) *Service {
	factory := newServiceFactory(params)

	auth := factory.CreateAuthService()
	workflow := factory.CreateWorkflowService()

	return &Service{
		Auth:     auth,
		Workflow: workflow,
		Runner:   factory.CreateRunService(auth, workflow),
	}
}
