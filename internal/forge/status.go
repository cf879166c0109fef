package forge

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// statusWorkers bounds the parallel status fan-out. Fetches are read-only;
// results are consumed by the caller before rendering.
const statusWorkers = 4

// FetchStatuses fetches PR statuses in parallel and returns them keyed by PR
// id. Individual failures leave their id absent rather than failing the
// whole fetch.
func FetchStatuses(ctx context.Context, f Forge, ids []int) map[int]*PRStatus {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(statusWorkers)

	var mu sync.Mutex
	results := make(map[int]*PRStatus, len(ids))
	for _, id := range ids {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			status, err := f.GetPRStatus(id)
			if err != nil {
				return nil
			}
			mu.Lock()
			results[id] = status
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return results
}

// Detect guesses the forge kind from a remote URL.
func Detect(remoteURL string) string {
	if remoteURL == "" {
		return "github"
	}
	if strings.Contains(remoteURL, "gitlab") {
		return "gitlab"
	}
	return "github"
}
