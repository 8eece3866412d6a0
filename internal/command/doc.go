// Package command implements the shared command registry and dispatcher.
//
// Plugins register commands through explicit descriptors. Every accepted
// descriptor is reachable under three name classes: the plugin-prefixed
// name (always, overriding on conflict), the bare declared name, and each
// declared alias. A primary (non-alias) registration outranks an alias for
// the same name; the plugin-prefixed namespace is the guaranteed fallback.
//
// Dispatch resolves a token sequence longest-first, retrying against
// progressively shorter ancestor names so that unmatched trailing tokens
// become ordinary handler arguments. Handler results are translated into
// sender-visible messages at the dispatch boundary and never escape as
// raised failures.
package command
