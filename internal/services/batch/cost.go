package batch

import (
	"github.com/ternarybob/prospect/internal/common"
	"github.com/ternarybob/prospect/internal/models"
)

// CostEstimator computes the estimated monetary cost of a batch submission.
// Pure and side-effect free: cost = itemCount * rate(type) * tierMultiplier.
// Rates come from [pricing] config, never from call sites.
type CostEstimator struct {
	pricing *common.PricingConfig
}

// NewCostEstimator creates a cost estimator from pricing configuration
func NewCostEstimator(pricing *common.PricingConfig) *CostEstimator {
	return &CostEstimator{pricing: pricing}
}

// Estimate returns the estimated cost for submitting itemCount entities of
// the given job type at the given tier. Non-positive item counts cost zero.
func (e *CostEstimator) Estimate(jobType models.JobType, itemCount int, mode models.ProcessingMode) float64 {
	if itemCount <= 0 {
		return 0
	}
	cost := float64(itemCount) * e.pricing.Rate(jobType)
	if mode == models.ModeDeferred {
		cost *= e.pricing.DeferredDiscount
	}
	return cost
}
