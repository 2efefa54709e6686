// Package archive turns a ZIP archive held in memory into an ordered list of
// page images.
//
// The order is derived only from member names: noise entries (macOS resource
// forks, .DS_Store) and non-image members are dropped, and the rest are sorted
// with a natural comparator in which digit runs compare by value. The same
// bytes always yield the same order, regardless of the order of entries in
// the archive's central directory. Upload and page serving both go through
// Open, so the page index recorded at upload time addresses the same member
// when a page is served.
package archive
