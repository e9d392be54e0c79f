package core

import (
	"context"
	"fmt"
	"io"
	"sync"

	"docvault/internal/model"
)

// batchExec runs one batch item. The orchestration (permission check,
// multi-store steps) happens inside; the coordinator only schedules.
type batchExec func(ctx context.Context, position int, targetID string) error

// runBatch fans targets out over a bounded worker pool. One item's
// failure never aborts the others. Results land in a pre-sized slot array
// indexed by input position, so the outcome order always matches the
// input order regardless of completion order. Cancelling ctx marks
// queued-but-unstarted items cancelled; in-flight items finish normally,
// and nothing already committed is unwound.
func (s *Service) runBatch(ctx context.Context, principal model.Principal, kind string, targets []string, exec batchExec) (*model.BatchJob, error) {
	job := &model.BatchJob{
		ID:          s.idgen.New(),
		Kind:        kind,
		PrincipalID: principal.ID,
		Status:      model.BatchRunning,
		StartedAt:   s.clock.Now(),
		Items:       make([]model.BatchItem, len(targets)),
	}
	for i, t := range targets {
		job.Items[i] = model.BatchItem{Position: i, TargetID: t}
	}
	if err := s.repo.CreateBatchJob(ctx, job); err != nil {
		return nil, E(KindStorage, "batch-"+kind, job.ID, err)
	}

	workers := s.opts.batchWorkers()
	if workers > len(targets) {
		workers = len(targets)
	}

	positions := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range positions {
				job.Items[i] = s.runBatchItem(ctx, targets[i], i, exec)
			}
		}()
	}

feed:
	for i := range targets {
		select {
		case positions <- i:
		case <-ctx.Done():
			// Unstarted items are cancelled, not run.
			for j := i; j < len(targets); j++ {
				job.Items[j] = model.BatchItem{
					Position: j,
					TargetID: targets[j],
					Status:   model.ItemCancelled,
					Reason:   "batch cancelled before item started",
				}
			}
			break feed
		}
	}
	close(positions)
	wg.Wait()

	job.Status = model.BatchCompleted
	for _, item := range job.Items {
		if item.Status != model.ItemSucceeded {
			job.Status = model.BatchCompletedWithErrors
			break
		}
	}
	now := s.clock.Now()
	job.FinishedAt = &now

	// Persisting the final outcome uses a fresh context: the job result
	// must be recorded even when the batch was cancelled.
	if err := s.repo.FinishBatchJob(context.WithoutCancel(ctx), job); err != nil {
		s.logger.Error("recording batch outcome failed", "job", job.ID, "error", err)
	}

	s.emit(ctx, principal, "batch-"+kind, job.ID, nil, fmt.Sprintf("%d items, %s", len(targets), job.Status))
	s.logger.Info("batch finished", "job", job.ID, "kind", kind, "status", string(job.Status))
	return job, nil
}

// runBatchItem executes one item under its own deadline. Exceeding the
// deadline fails that item with Timeout without affecting siblings.
func (s *Service) runBatchItem(ctx context.Context, targetID string, position int, exec batchExec) model.BatchItem {
	item := model.BatchItem{Position: position, TargetID: targetID}

	itemCtx := ctx
	if s.opts.ItemTimeout > 0 {
		var cancel context.CancelFunc
		itemCtx, cancel = context.WithTimeout(ctx, s.opts.ItemTimeout)
		defer cancel()
	}

	err := exec(itemCtx, position, targetID)
	if err == nil {
		item.Status = model.ItemSucceeded
		return item
	}

	kind := KindOf(err)
	if itemCtx.Err() == context.DeadlineExceeded {
		kind = KindTimeout
	}
	item.Status = model.ItemFailed
	item.ErrorKind = string(kind)
	item.Reason = err.Error()
	return item
}

// BatchTrash soft-deletes each target independently.
func (s *Service) BatchTrash(ctx context.Context, principal model.Principal, documentIDs []string) (*model.BatchJob, error) {
	return s.runBatch(ctx, principal, "delete", documentIDs, func(ctx context.Context, _ int, id string) error {
		return s.Trash(ctx, principal, id)
	})
}

// BatchRestore restores each trashed target independently.
func (s *Service) BatchRestore(ctx context.Context, principal model.Principal, documentIDs []string) (*model.BatchJob, error) {
	return s.runBatch(ctx, principal, "restore", documentIDs, func(ctx context.Context, _ int, id string) error {
		return s.RestoreDocument(ctx, principal, id)
	})
}

// BatchPurge permanently deletes each trashed target independently.
func (s *Service) BatchPurge(ctx context.Context, principal model.Principal, documentIDs []string) (*model.BatchJob, error) {
	return s.runBatch(ctx, principal, "purge", documentIDs, func(ctx context.Context, _ int, id string) error {
		return s.Purge(ctx, principal, id)
	})
}

// BatchMove moves each target into destFolderID, keeping its name.
func (s *Service) BatchMove(ctx context.Context, principal model.Principal, documentIDs []string, destFolderID string) (*model.BatchJob, error) {
	return s.runBatch(ctx, principal, "move", documentIDs, func(ctx context.Context, _ int, id string) error {
		return s.MoveDocument(ctx, principal, id, destFolderID, "")
	})
}

// BatchUpdateTags applies the same tag mutation to each target.
func (s *Service) BatchUpdateTags(ctx context.Context, principal model.Principal, documentIDs []string, add, remove []string) (*model.BatchJob, error) {
	return s.runBatch(ctx, principal, "tags", documentIDs, func(ctx context.Context, _ int, id string) error {
		_, err := s.UpdateTags(ctx, principal, id, add, remove)
		return err
	})
}

// UploadIntent is one item of a batch upload.
type UploadIntent struct {
	FolderID    string
	Name        string
	ContentType string
	Content     io.Reader
}

// BatchUpload creates one document per intent. Item target ids in the
// job are the intended names. Created document ids are returned in input
// order, empty at failed positions.
func (s *Service) BatchUpload(ctx context.Context, principal model.Principal, intents []UploadIntent) (*model.BatchJob, []string, error) {
	targets := make([]string, len(intents))
	for i, in := range intents {
		targets[i] = in.Name
	}

	createdIDs := make([]string, len(intents))
	var mu sync.Mutex

	job, err := s.runBatch(ctx, principal, "upload", targets, func(ctx context.Context, i int, _ string) error {
		in := intents[i]
		doc, err := s.Create(ctx, principal, in.FolderID, in.Name, in.ContentType, in.Content)
		if err != nil {
			return err
		}
		mu.Lock()
		createdIDs[i] = doc.ID
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return job, createdIDs, nil
}

// BatchDownload streams each target's current content into the writer
// sink opens for it. A sink error fails only that item.
func (s *Service) BatchDownload(ctx context.Context, principal model.Principal, documentIDs []string, sink func(documentID string) (io.WriteCloser, error)) (*model.BatchJob, error) {
	return s.runBatch(ctx, principal, "download", documentIDs, func(ctx context.Context, _ int, id string) error {
		w, err := sink(id)
		if err != nil {
			return E(KindStorage, "download", id, err)
		}
		_, derr := s.Download(ctx, principal, id, w)
		if cerr := w.Close(); derr == nil && cerr != nil {
			derr = E(KindStorage, "download", id, cerr)
		}
		return derr
	})
}

// GetBatchJob returns a batch job's recorded outcome. Jobs are visible
// only to the principal that ran them.
func (s *Service) GetBatchJob(ctx context.Context, principal model.Principal, jobID string) (*model.BatchJob, error) {
	job, err := s.repo.FindBatchJob(ctx, jobID)
	if err != nil {
		return nil, E(KindStorage, "get-batch", jobID, err)
	}
	if job == nil {
		return nil, E(KindNotFound, "get-batch", jobID, "batch job does not exist")
	}
	if job.PrincipalID != principal.ID {
		return nil, E(KindUnauthorized, "get-batch", jobID, "job belongs to another principal")
	}
	return job, nil
}
