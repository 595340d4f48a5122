package driving

import (
	"context"

	"github.com/context-cache/ctxc/internal/core/domain"
)

// IngestService is the driving port for the ingest pipeline: the
// watcher, the CLI, and the HTTP API all call through this interface rather
// than depending on the pipeline's concrete wiring.
type IngestService interface {
	// IngestPaths loads, chunks, embeds and indexes the given files under a
	// source, returning the job that tracked the run.
	IngestPaths(ctx context.Context, sourceID string, paths []string, priority domain.Priority) (domain.IngestJob, error)
	// IngestSource walks a source's full scope (a fresh source, or a
	// requested re-sweep) rather than a specific set of changed paths.
	IngestSource(ctx context.Context, sourceID string, priority domain.Priority) (domain.IngestJob, error)
	RemovePaths(ctx context.Context, sourceID string, paths []string) error
	JobStatus(ctx context.Context, jobID string) (domain.IngestJob, error)
}
