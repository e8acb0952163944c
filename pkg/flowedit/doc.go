// Package flowedit models the conversation flow behind a visual bot
// editor: a directed graph of typed message nodes (triggers, text and
// media sends, button menus, interactive lists, catalogs) connected by
// edges that define routing.
//
// The package owns the two transformations that make the editor work:
//
//   - Connection resolution. Routing lives in each node's data
//     (nextNodeId fields, button targets, catalog connection maps); the
//     visual edge set is a pure, deterministic projection of it.
//     DeriveEdges rebuilds that projection, Connect and Disconnect
//     translate drawn or removed edges back into node data, and
//     ResolveEdges refreshes a graph's edges in one synchronous step
//     while preserving freeform edges the user drew by hand.
//
//   - Compaction. Compact collapses the editable graph into the minimal
//     clean format the bot runtime executes: triggers become start nodes
//     absorbing their message source, blank buttons and items are
//     filtered out, empty nodes disappear.
//
// Graph values are immutable; every mutation (ApplyNodeUpdate,
// RemoveNode, Connect, ...) returns a new Graph that shares unchanged
// nodes with the old one. Operations on missing node IDs are no-ops.
// Node payloads form a closed tagged union over the eight node kinds;
// dispatch on them with an exhaustive type switch.
//
// Session management, persistence and media uploads live in the
// subpackages session, store, cache and media.
package flowedit
