package parts

import (
	"time"

	"go.uber.org/zap"

	applog "github.com/partdb/backend/internal/application/logsystem"
	"github.com/partdb/backend/internal/domain/logsystem"
	"github.com/partdb/backend/internal/domain/shared"
)

// Deps bundles the collaborators shared by the services of this package
type Deps struct {
	Tracker  *applog.Tracker
	Comments *logsystem.EventCommentNeededHelper
	Cache    TagCache
	CacheTTL time.Duration
	Logger   *zap.Logger
}

func (d Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// requireComment fails with COMMENT_REQUIRED if operations of kind need a
// comment and none was given
func (d Deps) requireComment(kind, comment string) error {
	if d.Comments == nil {
		return nil
	}
	needed, err := d.Comments.IsCommentNeeded(kind)
	if err != nil {
		return err
	}
	if needed && comment == "" {
		return shared.ErrCommentRequired
	}
	return nil
}
