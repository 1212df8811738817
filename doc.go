// Package disko exposes block-addressable storage through a uniform
// sector-oriented interface (Disk), and the shared primitives - Permissions,
// SectorSize, and the DiskErr error taxonomy - that the borrow registry
// (package borrow), MBR codec (package mbr), and FAT filesystem layer
// (package fat) are built on.
package disko
