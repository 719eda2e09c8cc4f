// Package canon implements the slice of the WebAssembly canonical ABI that
// lens add-ons use to talk to the host.
//
// Guests export functions that take and return only numbers. Composite values
// cross that boundary as pointers into the guest's linear memory:
//
//   - strings travel as a (pointer, length) pair of little-endian u32 words
//     addressing UTF-8 bytes;
//   - lists travel as a (base, count) header addressing count records laid
//     out back to back at a fixed stride.
//
// Lowering copies a host string into memory obtained from the guest's
// realloc export. Lifting walks a returned list header and copies every byte
// it needs out of guest memory, so results never alias the guest.
//
// All memory access goes through a bounds-checked [View]. A [ViewCache] keeps
// the current view and rebuilds it only when the guest's buffer moves, which
// happens whenever linear memory grows.
//
// Malformed UTF-8 is a hard error in both directions.
package canon
