// -----------------------------------------------------------------------
// Result Dispatcher - Fans a completed batch back out to entities
// -----------------------------------------------------------------------

package batch

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/interfaces"
	"github.com/ternarybob/prospect/internal/models"
)

// Dispatcher downloads a completed batch's result artifact, decodes each
// correlation id, and routes every well-formed record to its entity-update
// handler. Errors are contained at the record level: a record that cannot
// be decoded or applied is logged and skipped, never silently applied to
// the wrong entity and never fatal to the remaining records. Only failure
// to read the artifact itself fails the job.
type Dispatcher struct {
	store    interfaces.JobStore
	provider interfaces.BatchProvider
	router   *Router
	events   interfaces.EventService
	logger   arbor.ILogger
}

// NewDispatcher creates a result dispatcher
func NewDispatcher(
	store interfaces.JobStore,
	provider interfaces.BatchProvider,
	router *Router,
	events interfaces.EventService,
	logger arbor.ILogger,
) *Dispatcher {
	return &Dispatcher{
		store:    store,
		provider: provider,
		router:   router,
		events:   events,
		logger:   logger,
	}
}

// Dispatch processes the results of a remotely-completed job and moves it
// into the completed terminal state, attaching results and CompletedAt
// exactly once. Records are processed in provider order.
func (d *Dispatcher) Dispatch(ctx context.Context, jobID string) error {
	job, err := d.store.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.IsTerminal() {
		d.logger.Debug().Str("job_id", jobID).Str("status", string(job.Status)).Msg("Job already terminal, skipping dispatch")
		return nil
	}

	results, err := d.provider.BatchResults(ctx, job.Metadata.RemoteHandle)
	if err != nil {
		// The artifact itself is unreadable - job-level failure
		cause := fmt.Errorf("failed to download result artifact: %w", err)
		if updateErr := d.store.Update(ctx, jobID, func(j *models.BatchJob) error {
			return j.MarkFailed(cause.Error())
		}); updateErr != nil {
			d.logger.Warn().Err(updateErr).Str("job_id", jobID).Msg("Failed to mark job failed")
		}
		d.publishEvent(ctx, interfaces.EventJobFailed, jobID)
		return cause
	}

	handler, hasHandler := d.router.Handler(job.Type)
	if !hasHandler {
		// Registered at submission; losing the handler mid-flight is a bug
		d.logger.Error().Str("job_id", jobID).Str("type", string(job.Type)).Msg("No result handler for job type")
	}

	records := make([]models.ResultRecord, 0, len(results))
	applied, skipped := 0, 0

	for _, result := range results {
		cid, err := ParseCorrelationID(result.CustomID)
		if err != nil {
			// Never guess a target entity - skip and log
			skipped++
			d.logger.Warn().
				Err(err).
				Str("job_id", jobID).
				Str("custom_id", result.CustomID).
				Msg("Skipping result with undecodable correlation id")
			continue
		}

		record := models.ResultRecord{
			CorrelationID: result.CustomID,
			EntityID:      cid.EntityID,
			SubTask:       cid.SubTaskTag,
		}

		if result.Error != "" {
			// Individual item failed while the batch succeeded
			record.Error = result.Error
			records = append(records, record)
			d.logger.Warn().
				Str("job_id", jobID).
				Str("entity_id", cid.EntityID).
				Str("sub_task", cid.SubTaskTag).
				Str("error", result.Error).
				Msg("Provider reported item-level failure")
			continue
		}

		record.Body = result.Body
		if hasHandler {
			if err := d.router.invoke(ctx, handler, job, cid.EntityID, cid.SubTaskTag, result.Body); err != nil {
				record.Error = err.Error()
				d.logger.Error().
					Err(err).
					Str("job_id", jobID).
					Str("entity_id", cid.EntityID).
					Str("sub_task", cid.SubTaskTag).
					Msg("Result handler failed, continuing with remaining records")
			} else {
				applied++
			}
		}

		records = append(records, record)
	}

	err = d.store.Update(ctx, jobID, func(j *models.BatchJob) error {
		return j.MarkCompleted(records)
	})
	if err != nil {
		return fmt.Errorf("failed to complete job %s: %w", jobID, err)
	}

	d.logger.Info().
		Str("job_id", jobID).
		Int("records", len(results)).
		Int("applied", applied).
		Int("skipped", skipped).
		Msg("Batch results dispatched")

	d.publishEvent(ctx, interfaces.EventJobCompleted, jobID)
	return nil
}

func (d *Dispatcher) publishEvent(ctx context.Context, eventType interfaces.EventType, jobID string) {
	if d.events == nil {
		return
	}
	if err := d.events.Publish(ctx, interfaces.Event{Type: eventType, Payload: jobID}); err != nil {
		d.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to publish job event")
	}
}
