package storage

import "flashArb/internal/model"

// Storage defines a sink for execution records.
type Storage interface {
	PutExecutionBatch(records []model.ExecutionRecord) error
}

// Multi fans each batch out to every sink, stopping on the first failure.
type Multi []Storage

func (m Multi) PutExecutionBatch(records []model.ExecutionRecord) error {
	for _, s := range m {
		if err := s.PutExecutionBatch(records); err != nil {
			return err
		}
	}
	return nil
}
