// Package sym defines the glyph constants used to tag structured log lines
// by subsystem. Attaching a symbol field to a log line makes the subsystem
// queryable without parsing the message text.
package sym

const (
	// DB tags storage and migration operations.
	DB = "⊔"

	// Bridge tags Layer1Bridge validation and artifact ingestion.
	Bridge = "⛓"

	// Chain tags ContinuityChain checkpoint and verification operations.
	Chain = "◈"

	// Net tags peer network HTTP server and client activity.
	Net = "⇄"

	// Cache tags CorticalCache reads, writes and invalidations.
	Cache = "⚡"

	// Witness tags witness counter-signing and trust scoring.
	Witness = "✓"

	// Open tags graceful startup of a long-running component.
	Open = "✿"

	// Close tags graceful shutdown of a long-running component.
	Close = "❀"
)
