// Package borrow implements the runtime borrow checker over byte ranges of
// a backing disko.Disk: a Registry tracks outstanding read and write loans
// and issues SubDisk and FragmentedSubDisk views that enforce the aliasing
// rule "many readers, or one writer, never both" for any given byte.
package borrow
