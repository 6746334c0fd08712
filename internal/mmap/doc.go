// Package mmap provides read-only memory-mapped file access.
//
// It backs the read path of the local blob store: version files, segment
// metadata and task resources are opened as mappings and copied out or read
// through io.ReaderAt.
//
//	m, err := mmap.Open("version.3")
//	if err != nil { ... }
//	defer m.Close()
//	data := m.Bytes()
//
// Unix platforms use mmap(2); Windows uses CreateFileMapping/MapViewOfFile.
package mmap
