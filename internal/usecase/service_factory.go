package usecase

import (
	"attendance-agent/internal/usecase/adapters"
)

type serviceFactory struct {
	deps Params
}

func newServiceFactory(deps Params) *serviceFactory {
	return &serviceFactory{
		deps: deps,
	}
}

func (f *serviceFactory) CreateAuthService() adapters.AuthService {
	return NewAuthenticator(AuthenticatorParams{
		Config:  f.deps.Config,
		Logger:  f.deps.Logger,
		Browser: f.deps.Browser,
	})
}

func (f *serviceFactory) CreateWorkflowService() adapters.WorkflowService {
	return NewAttendanceWorkflow(AttendanceWorkflowParams{
		Config:  f.deps.Config,
		Logger:  f.deps.Logger,
		Browser: f.deps.Browser,
	})
}

func (f *serviceFactory) CreateRunService(auth adapters.AuthService, workflow adapters.WorkflowService) adapters.RunService {
	return NewRunner(RunnerParams{
		Config:      f.deps.Config,
		Logger:      f.deps.Logger,
		Browser:     f.deps.Browser,
		Auth:        auth,
		Workflow:    workflow,
		Diagnostics: f.deps.Diagnostics,
		Recorders:   f.deps.Recorders,
	})
}
