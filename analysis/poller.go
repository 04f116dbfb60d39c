package analysis

import (
	"context"
	"fmt"
	"time"

	"videonotes-site/gemini"
)

const (
	initialPollDelay = 100 * time.Millisecond
	maxPollDelay     = 20 * time.Second
)

// nextPollDelay doubles the delay, capped at max. The resulting sequence from
// 100ms is 100, 200, 400, ... 12800, 20000, 20000, ...
func nextPollDelay(delay, max time.Duration) time.Duration {
	delay *= 2
	if delay > max {
		return max
	}
	return delay
}

// pollUntilActive re-fetches the remote file until it leaves PROCESSING,
// sleeping with capped exponential backoff between checks. Returns the handle
// once ACTIVE; any other settled state is a RemoteProcessingError. With
// MaxPollAttempts == 0 it polls for as long as the remote side keeps saying
// PROCESSING.
func (o *Orchestrator) pollUntilActive(ctx context.Context, file *gemini.File, emit func(Event) bool) (*gemini.File, error) {
	delay := o.cfg.InitialPollDelay
	attempt := 1

	for file.State == gemini.FileStateProcessing {
		if o.cfg.MaxPollAttempts > 0 && attempt > o.cfg.MaxPollAttempts {
			return nil, &RemoteProcessingError{
				State:   string(file.State),
				Message: fmt.Sprintf("still processing after %d status checks", o.cfg.MaxPollAttempts),
			}
		}

		if !emit(Event{Type: EventFileProcessing, Name: file.Name, Attempt: attempt, NextDelayMs: delay.Milliseconds()}) {
			return nil, ctx.Err()
		}
		log.Debugf("%s still processing, attempt %d, next check in %v", file.Name, attempt, delay)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}

		next, err := o.client.GetFileStatus(ctx, file.Name)
		if err != nil {
			return nil, err
		}
		file = next
		delay = nextPollDelay(delay, o.cfg.MaxPollDelay)
		attempt++
	}

	if file.State == gemini.FileStateActive {
		if !emit(Event{Type: EventFileActive, Name: file.Name}) {
			return nil, ctx.Err()
		}
		return file, nil
	}
	return nil, &RemoteProcessingError{State: string(file.State), Message: file.ErrorMessage()}
}
