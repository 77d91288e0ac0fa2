// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Embedder: Maps text and images into the shared CLIP space
//   - FileStore: Image and feature file persistence (local disk or S3)
//   - FeatureStore: Feature batches and the consolidated corpus
//   - CatalogStore: The identifier mapping table
//   - ImageFetcher: Remote image downloads
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - CatalogSource: Only needed by acquisition, not by query serving.
//   - CatalogIndex: SQLite mirror of the catalog for inspection.
//   - RunStore: Run history. Without it, summaries are only printed.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
