// Package mbr implements bit-exact serialization of the classic 512-byte
// Master Boot Record boot sector and a GenericMbr partition table built on
// top of it: create/query partitions with overlap rejection, and hand out
// borrow.SubDisk views of individual partitions.
package mbr
