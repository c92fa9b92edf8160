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
//   - FragmentStore: Fragment, annotation and full-text persistence (SQLite)
//   - EmbeddingProvider: Generates vector embeddings
//   - ConfigStore: Application configuration
//   - ContainerRegistry: Container registry persistence
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Reranker: Cross-encoder reordering of fused candidates. Without it,
//     results keep the fused order.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
