package rewrite

import (
	"context"
	"time"

	"github.com/git-ai/git-ai/internal/workinglog"
)

// SyncAuthorshipLogs records an AuthorshipLogsSynced event (spec §4.7:
// "All verbs end with an AuthorshipLogsSynced{synced[], origin[]} event
// on successful push/fetch of the authorship-log namespace").
func (e *Engine) SyncAuthorshipLogs(ctx context.Context, headSHA string, synced, origin []string) error {
	return e.appendEvent(headSHA, workinglog.NewAuthorshipLogsSyncedEvent(synced, origin, time.Now().Unix()))
}
