package accel

import (
	"github.com/sarchlab/cadence/hal"
	"github.com/sarchlab/cadence/rtk"
)

// SampleStore holds the most recent accelerometer sample, shared between the
// sampler and its consumers. Access goes through a kernel semaphore, so a
// reader can never observe a half-written sample.
type SampleStore struct {
	sem    rtk.SemID
	sample hal.Sample
}

// NewSampleStore creates a store guarded by the given semaphore.
func NewSampleStore(sem rtk.SemID) *SampleStore {
	return &SampleStore{sem: sem}
}

// Put replaces the stored sample. Must be called from task context.
func (s *SampleStore) Put(tc *rtk.TaskCtx, v hal.Sample) error {
	if err := tc.Acquire(s.sem); err != nil {
		return err
	}

	s.sample = v

	return tc.Release(s.sem)
}

// Get reads the stored sample. Must be called from task context.
func (s *SampleStore) Get(tc *rtk.TaskCtx) (hal.Sample, error) {
	if err := tc.Acquire(s.sem); err != nil {
		return hal.Sample{}, err
	}

	v := s.sample

	if err := tc.Release(s.sem); err != nil {
		return hal.Sample{}, err
	}

	return v, nil
}
