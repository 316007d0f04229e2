// Package electionengine runs multi-position elections inside the governance
// context.
//
// Positions are voted one at a time in up to three scrutiny rounds. The
// module owns ballot validation, quorum and majority resolution, the position
// sequencer, attendance snapshots and the read-only results view. Broadcasts
// go through an outbox drained by workers; storage and transport stay behind
// ports and adapters.
package electionengine
