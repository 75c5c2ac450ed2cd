package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingJob struct {
	ran         bool
	hadDeadline bool
	ctxErr      error
	result      error
}

func (j *recordingJob) Name() string { return "recording" }

func (j *recordingJob) Run(ctx context.Context) error {
	j.ran = true
	_, j.hadDeadline = ctx.Deadline()
	j.ctxErr = ctx.Err()
	return j.result
}

func TestRunJob_AppliesTimeout(t *testing.T) {
	s := New(zerolog.Nop())
	job := &recordingJob{}

	s.runJob(job, time.Minute)

	require.True(t, job.ran)
	assert.True(t, job.hadDeadline)
	assert.NoError(t, job.ctxErr)
}

func TestRunJob_StoppedSchedulerCancelsJobContext(t *testing.T) {
	s := New(zerolog.Nop())
	s.Stop()

	job := &recordingJob{}
	s.runJob(job, time.Minute)

	require.True(t, job.ran)
	assert.ErrorIs(t, job.ctxErr, context.Canceled)
}

func TestRunJob_SwallowsJobError(t *testing.T) {
	s := New(zerolog.Nop())
	job := &recordingJob{result: errors.New("boom")}

	// A failing job is logged, not propagated; the schedule keeps running.
	s.runJob(job, time.Minute)
	require.True(t, job.ran)
}

func TestAddJob(t *testing.T) {
	s := New(zerolog.Nop())

	require.NoError(t, s.AddJob("@every 1h", &recordingJob{}, time.Minute))
	require.Error(t, s.AddJob("not a schedule", &recordingJob{}, time.Minute))
}
