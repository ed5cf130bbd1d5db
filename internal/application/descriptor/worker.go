package descriptor

import (
	"context"
	"time"

	"github.com/google/uuid"

	kafkainfra "github.com/turtacn/molfp/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/molfp/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molfp/pkg/errors"
)

// HandleMessage processes a descriptor job from the queue and publishes its
// result. Bad structures produce an error result rather than an error, so
// only infrastructure failures are retried by the consumer.
func (s *serviceImpl) HandleMessage(ctx context.Context, msg *kafkainfra.Message) (err error) {
	env, err := kafkainfra.MessageToEventEnvelope(msg)
	if err != nil {
		return err
	}
	if env.EventType != kafkainfra.EventDescriptorJob {
		s.logger.Debug("ignoring event", logging.String("event_type", env.EventType))
		return nil
	}
	var job kafkainfra.DescriptorJobPayload
	if err := env.DecodePayload(&job); err != nil {
		return err
	}
	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	log := s.logger.With(logging.RequestID(job.JobID))

	if s.claims != nil {
		ok, cerr := s.claims.Claim(ctx, job.JobID)
		if cerr != nil {
			return cerr
		}
		if !ok {
			log.Info("duplicate job skipped")
			return nil
		}
		defer func() {
			if err == nil {
				return
			}
			if relErr := s.claims.Release(context.WithoutCancel(ctx), job.JobID); relErr != nil {
				log.Warn("release job claim", logging.Err(relErr))
			}
		}()
	}

	done := s.metrics.JobStarted()
	defer done()
	start := time.Now()
	defer func() { s.metrics.RecordJob(err, time.Since(start)) }()

	result := kafkainfra.DescriptorResultPayload{JobID: job.JobID}
	res, err := s.Compute(ctx, &ComputeRequest{
		Structure: job.Structure,
		Format:    job.Format,
		Families:  job.Families,
		Persist:   job.Persist,
	})
	switch {
	case err != nil && retryable(err):
		log.Warn("descriptor job failed, will retry", logging.Err(err))
		return err
	case err != nil:
		log.Info("descriptor job rejected", logging.Err(err))
		result.Error = err.Error()
		result.ErrorCode = string(errors.GetCode(err))
	default:
		result.Canonical = res.Canonical
		result.Descriptors = res.Encoded()
	}
	result.CompletedAt = s.now().UTC()

	return s.publishResult(ctx, result)
}

func (s *serviceImpl) publishResult(ctx context.Context, result kafkainfra.DescriptorResultPayload) error {
	if s.publisher == nil {
		s.logger.Warn("no publisher configured, dropping job result", logging.RequestID(result.JobID))
		return nil
	}
	env, err := kafkainfra.NewEventEnvelope(kafkainfra.EventDescriptorResult, eventSource, result)
	if err != nil {
		return err
	}
	out, err := env.ToMessage(kafkainfra.TopicDescriptorResults, result.JobID)
	if err != nil {
		return err
	}
	return s.publisher.Publish(ctx, out)
}

// retryable tells infrastructure failures from rejected input.
func retryable(err error) bool {
	switch errors.GetCode(err) {
	case errors.ErrCodeDatabaseError, errors.ErrCodeCacheError, errors.ErrCodeMessageQueueError,
		errors.ErrCodeServiceUnavailable, errors.ErrCodeTimeout, errors.ErrCodeInternal, errors.CodeUnknown:
		return true
	}
	return false
}

//Personal.AI order the ending
