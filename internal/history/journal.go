package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"attendance-agent/internal/config"
	"attendance-agent/internal/entity"
	"attendance-agent/pkg/apperr"
	"attendance-agent/pkg/logg"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const lineLayout = "15:04:05 on 2006-01-02"

// Journal appends one line per run to a plain text file.
type Journal struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewJournal(params Params) *Journal {
	return &Journal{
		path:   params.Config.OutputConfig.HistoryFile,
		logger: params.Logger.With(zap.String(logg.Layer, "Journal")),
	}
}

// FormatLine renders a report as "<Outcome> at 15:04:05 on 2006-01-02".
func FormatLine(report *entity.Report) string {
	return fmt.Sprintf("%s at %s", report.Outcome, report.FinishedAt.Format(lineLayout))
}

func (j *Journal) Record(ctx context.Context, report *entity.Report) error {
	const op = "Record"

	if j.path == "" {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if dir := filepath.Dir(j.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
				apperr.MetaStage: apperr.StageStorage,
			})
		}
	}

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaStage: apperr.StageStorage,
		})
	}
	defer f.Close()

	line := FormatLine(report)

	if _, err := fmt.Fprintln(f, line); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaStage: apperr.StageStorage,
		})
	}

	j.logger.Debug("Run recorded",
		zap.String(logg.Operation, op),
		zap.String("line", line),
		zap.String("detail", report.Detail))

	return nil
}
