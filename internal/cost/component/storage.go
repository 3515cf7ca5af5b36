// Package component wraps the formula primitives into per-service cost
// functions: one per storage tier, per compute runtime, per ingestion
// path, and per twin/visualization backend. Every function takes the
// generalized pricing.ProviderPricing rates rather than a
// provider-specific nested pricing shape, since a twin deployed to any
// of the three providers flows through the same five layers.
//
// Grounded on
// original_source/2-twin2clouds/backend/calculation_v2/components/{aws,azure,gcp}/*.py:
// AWS DynamoDB/S3-IA/S3-Glacier, Azure Cosmos DB/Blob Storage,
// GCP Firestore/Nearline/Coldline all reduce to the same
// action-based-plus-storage-based shape this file generalizes.
package component

import (
	"github.com/twin2multicloud/deployer/internal/cost/formula"
	"github.com/twin2multicloud/deployer/internal/cost/pricing"
)

// HotStorage costs the L3 hot tier (DynamoDB, Cosmos DB, Firestore):
// per-write and per-read action costs plus GB-month storage, net of
// the provider's included free storage.
func HotStorage(p pricing.ProviderPricing, writesPerMonth, readsPerMonth, storageGB float64) float64 {
	writeCost := formula.ActionBased(p.HotWritePrice, writesPerMonth)
	readCost := formula.ActionBased(p.HotReadPrice, readsPerMonth)
	billableGB := storageGB - p.HotFreeStorageGB
	if billableGB < 0 {
		billableGB = 0
	}
	storageCost := formula.StorageBased(p.HotStoragePrice, billableGB, 1.0)
	return writeCost + readCost + storageCost
}

// CoolStorage costs the L3 cool tier (S3 Infrequent Access, Nearline):
// storage plus write actions, with optional retrieval.
func CoolStorage(p pricing.ProviderPricing, storageGB, writesPerMonth, retrievalsGB float64) float64 {
	storageCost := formula.StorageBased(p.CoolStoragePrice, storageGB, 1.0)
	writeCost := formula.ActionBased(writeActionPrice(p.CoolStoragePrice), writesPerMonth)
	retrievalCost := formula.ActionBased(writeActionPrice(p.CoolStoragePrice), retrievalsGB)
	return storageCost + writeCost + retrievalCost
}

// ArchiveStorage costs the L3 archive tier (Glacier Deep Archive,
// Coldline): the same shape as CoolStorage but with the archive tier's
// much cheaper storage rate and much more expensive retrieval, so
// retrieval is priced explicitly rather than defaulted to zero.
func ArchiveStorage(p pricing.ProviderPricing, storageGB, writesPerMonth, retrievalsGB, retrievalPricePerGB float64) float64 {
	storageCost := formula.StorageBased(p.ArchiveStoragePrice, storageGB, 1.0)
	writeCost := formula.ActionBased(writeActionPrice(p.ArchiveStoragePrice), writesPerMonth)
	retrievalCost := formula.ActionBased(retrievalPricePerGB, retrievalsGB)
	return storageCost + writeCost + retrievalCost
}

// writeActionPrice derives a nominal write/lifecycle-transition price
// from the storage rate when no dedicated write price is configured,
// matching the originals' `p.get("writePrice", <small constant>)`
// fallback for cool/archive tiers where a write costs far less than a
// GB-month of storage.
func writeActionPrice(storagePricePerGBMonth float64) float64 {
	return storagePricePerGBMonth * 0.01
}
