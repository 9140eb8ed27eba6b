package ai

import (
	"context"

	"github.com/amishk599/jobsift/internal/model"
)

// NopClassifier is a no-op classifier used when ai.enabled is false.
// It never calls a model and never produces a result.
type NopClassifier struct{}

// NewNopClassifier returns a NopClassifier.
func NewNopClassifier() *NopClassifier {
	return &NopClassifier{}
}

// Classify always reports no result.
func (n *NopClassifier) Classify(_ context.Context, _ string) (model.Classification, bool) {
	return model.Classification{}, false
}
