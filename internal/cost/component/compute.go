package component

import (
	"github.com/twin2multicloud/deployer/internal/cost/formula"
	"github.com/twin2multicloud/deployer/internal/cost/pricing"
)

// Default execution assumptions shared across Lambda, Azure Functions,
// and Cloud Functions so cross-cloud comparisons price the same
// workload shape on every provider.
const (
	defaultDurationMS = 100
	defaultMemoryMB   = 128
)

// Execution costs one serverless function's monthly invocations at the
// default 100ms/128MB profile: request cost plus GB-second compute
// cost, each net of its own free tier.
func Execution(requestPrice, freeRequests, gbSecondPrice, freeGBSeconds, executions float64) float64 {
	memoryGB := float64(defaultMemoryMB) / 1024
	computeSeconds := executions * defaultDurationMS * 0.001
	computeGBSeconds := computeSeconds * memoryGB
	return formula.ExecutionBased(requestPrice, executions, freeRequests, gbSecondPrice, computeGBSeconds, freeGBSeconds)
}

// ExecutionWithDuration is Execution with an explicit duration, used by
// the L3 hot/cool/archive data movers which run longer than a typical
// message-processing invocation.
func ExecutionWithDuration(requestPrice, freeRequests, gbSecondPrice, freeGBSeconds, executions, durationMS float64) float64 {
	memoryGB := float64(defaultMemoryMB) / 1024
	computeSeconds := executions * durationMS * 0.001
	computeGBSeconds := computeSeconds * memoryGB
	return formula.ExecutionBased(requestPrice, executions, freeRequests, gbSecondPrice, computeGBSeconds, freeGBSeconds)
}

// GlueFunction costs a cross-cloud connector/ingestion/reader function:
// the same serverless runtime as Execution, re-exposed under its own
// name since the glue layer (internal/glue) calls it for a distinct
// reason (bridging providers, not processing within one).
func GlueFunction(price pricing.ProviderPricing, messages float64) float64 {
	return Execution(price.ExecutionPricePerRequest, price.ExecutionFreeRequests, price.ExecutionPricePerGBSecond, price.ExecutionFreeGBSeconds, messages)
}
