package store

import "context"

// NopStore is a no-op store used in dry-run mode. It accepts every batch and
// persists nothing.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) Upsert(_ context.Context, _ string, _ Dataset, _ []Row) error { return nil }
func (s *NopStore) Close() error                                                  { return nil }
