// Package console adapts a Unix terminal into a memory-mapped UART that satisfies
// core.MMIOHandler. It is the one worked MMIO device this module carries — not a
// model of any real UART, just the minimum status/data register pair needed to prove
// the hook works, in the same spirit as the teacher's keyboard/display pair.
package console
