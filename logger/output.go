package logger

// Output controls what categories of information are shown at each verbosity level.
//
// Unlike log levels (which filter by severity), output categories control
// WHAT types of information are displayed regardless of severity.
//
// Verbosity Levels:
//
//	0 (default) - User-facing output only: results, errors with hints
//	1 (-v)      - + progress, startup banner, network status
//	2 (-vv)     - + timing, config loaded, HTTP request lines, DB stats
//	3 (-vvv)    - + rate-limit/dedup decisions, internal flow, peer traffic
//	4 (-vvvv)   - + SQL queries, full request/response bodies, record dumps

// OutputCategory defines a category of output that can be enabled/disabled
type OutputCategory int

const (
	// Level 0 (default) - Always shown
	OutputResults    OutputCategory = iota // Command output, query results
	OutputErrors                           // Errors with hints and resolution steps
	OutputUserStatus                       // Final success/failure status

	// Level 1 (-v) - Informational
	OutputProgress      // Progress indicators (e.g. testnet node startup)
	OutputStartup       // Startup banners, config summary
	OutputNetworkStatus // Peer server/client up/down transitions
	OutputOperationInfo // High-level operation summaries

	// Level 2 (-vv) - Detailed
	OutputTiming       // Operation timing (e.g. "checkpoint took 42ms")
	OutputConfig       // Config values loaded/applied
	OutputHTTPRequests // Incoming peer HTTP request lines (method, path)
	OutputHTTPStatus   // Peer HTTP response status codes
	OutputDBStats      // DAG/witness/decision store statistics

	// Level 3 (-vvv) - Debug
	OutputRateLimitDecisions // Bridge/peer rate-limit accept/reject decisions
	OutputDedupDecisions     // Bridge dedup accept/reject decisions
	OutputInternalFlow       // Internal operation flow (function entry/exit)
	OutputPeerTraffic        // Per-peer request/response bookkeeping

	// Level 4 (-vvvv) - Full dump
	OutputSQLQueries // Full SQL queries executed
	OutputSQLResults // SQL query result summaries
	OutputHTTPBody   // Full HTTP request/response bodies
	OutputRecordDump // Full ValidationRecord contents
)

// categoryLevels maps each output category to its minimum verbosity level
var categoryLevels = map[OutputCategory]int{
	// Level 0 - Always shown
	OutputResults:    VerbosityUser,
	OutputErrors:     VerbosityUser,
	OutputUserStatus: VerbosityUser,

	// Level 1 - Informational
	OutputProgress:      VerbosityInfo,
	OutputStartup:       VerbosityInfo,
	OutputNetworkStatus: VerbosityInfo,
	OutputOperationInfo: VerbosityInfo,

	// Level 2 - Detailed
	OutputTiming:       VerbosityDebug,
	OutputConfig:       VerbosityDebug,
	OutputHTTPRequests: VerbosityDebug,
	OutputHTTPStatus:   VerbosityDebug,
	OutputDBStats:      VerbosityDebug,

	// Level 3 - Debug
	OutputRateLimitDecisions: VerbosityTrace,
	OutputDedupDecisions:     VerbosityTrace,
	OutputInternalFlow:       VerbosityTrace,
	OutputPeerTraffic:        VerbosityTrace,

	// Level 4 - Full dump
	OutputSQLQueries: VerbosityAll,
	OutputSQLResults: VerbosityAll,
	OutputHTTPBody:   VerbosityAll,
	OutputRecordDump: VerbosityAll,
}

// ShouldOutput returns true if the given category should be shown at the given verbosity
func ShouldOutput(verbosity int, category OutputCategory) bool {
	minLevel, ok := categoryLevels[category]
	if !ok {
		// Unknown category, default to highest verbosity required
		return verbosity >= VerbosityAll
	}
	return verbosity >= minLevel
}

// categoryNames provides human-readable names for output categories
var categoryNames = map[OutputCategory]string{
	OutputResults:            "results",
	OutputErrors:             "errors",
	OutputUserStatus:         "status",
	OutputProgress:           "progress",
	OutputStartup:            "startup",
	OutputNetworkStatus:      "network-status",
	OutputOperationInfo:      "operation-info",
	OutputTiming:             "timing",
	OutputConfig:             "config",
	OutputHTTPRequests:       "http-requests",
	OutputHTTPStatus:         "http-status",
	OutputDBStats:            "db-stats",
	OutputRateLimitDecisions: "rate-limit-decisions",
	OutputDedupDecisions:     "dedup-decisions",
	OutputInternalFlow:       "internal-flow",
	OutputPeerTraffic:        "peer-traffic",
	OutputSQLQueries:         "sql-queries",
	OutputSQLResults:         "sql-results",
	OutputHTTPBody:           "http-body",
	OutputRecordDump:         "record-dump",
}

// CategoryName returns the human-readable name for an output category
func CategoryName(category OutputCategory) string {
	if name, ok := categoryNames[category]; ok {
		return name
	}
	return "unknown"
}

// EnabledCategories returns all output categories enabled at the given verbosity
func EnabledCategories(verbosity int) []OutputCategory {
	var enabled []OutputCategory
	for cat, minLevel := range categoryLevels {
		if verbosity >= minLevel {
			enabled = append(enabled, cat)
		}
	}
	return enabled
}

// VerbosityDescription returns a description of what's shown at each level
func VerbosityDescription(verbosity int) string {
	switch verbosity {
	case VerbosityUser:
		return "results and errors only"
	case VerbosityInfo:
		return "results, errors, progress, network status"
	case VerbosityDebug:
		return "above + timing, config, HTTP requests, DB stats"
	case VerbosityTrace:
		return "above + rate-limit/dedup decisions, internal flow"
	case VerbosityAll:
		return "above + SQL queries, full bodies, record dumps"
	default:
		if verbosity > VerbosityAll {
			return "maximum verbosity"
		}
		return "unknown verbosity level"
	}
}

// Network output helpers

// ShouldShowHTTPRequests returns true if incoming peer HTTP request lines should be logged
func ShouldShowHTTPRequests(verbosity int) bool {
	return ShouldOutput(verbosity, OutputHTTPRequests)
}

// ShouldShowHTTPBody returns true if full HTTP request/response bodies should be logged
func ShouldShowHTTPBody(verbosity int) bool {
	return ShouldOutput(verbosity, OutputHTTPBody)
}

// Bridge output helpers

// ShouldShowOperationInfo returns true if high-level operation summaries
// (e.g. a bridge artifact validated) should be logged.
func ShouldShowOperationInfo(verbosity int) bool {
	return ShouldOutput(verbosity, OutputOperationInfo)
}

// ShouldShowRateLimitDecisions returns true if rate-limit accept/reject decisions should be logged
func ShouldShowRateLimitDecisions(verbosity int) bool {
	return ShouldOutput(verbosity, OutputRateLimitDecisions)
}

// ShouldShowDedupDecisions returns true if dedup accept/reject decisions should be logged
func ShouldShowDedupDecisions(verbosity int) bool {
	return ShouldOutput(verbosity, OutputDedupDecisions)
}

// Storage output helpers

// ShouldShowSQLQueries returns true if full SQL queries should be logged
func ShouldShowSQLQueries(verbosity int) bool {
	return ShouldOutput(verbosity, OutputSQLQueries)
}

// Timing helpers

// SlowThresholdMS is the threshold in milliseconds above which timing is always shown
const SlowThresholdMS = 100

// ShouldShowTiming returns true if timing info should be displayed.
// Shows if: verbosity >= 2 (-vv) OR operation exceeded slow threshold.
func ShouldShowTiming(verbosity int, durationMS int64) bool {
	if durationMS >= SlowThresholdMS {
		return true // Always show slow operations
	}
	return ShouldOutput(verbosity, OutputTiming)
}

// ShouldShowTimingAlways returns true if timing should always be shown (slow operation)
func ShouldShowTimingAlways(durationMS int64) bool {
	return durationMS >= SlowThresholdMS
}
