// Package fat implements the FAT12 and FAT16 filesystem layer: boot
// sector (BPB) parsing and synthesis, the FAT entry codec (including
// FAT12's 12-bit entries straddling byte boundaries), cluster-chain
// traversal, and directory iteration, all built on top of borrow.Registry
// subdisks.
package fat
