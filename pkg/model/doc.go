// Package model describes the data model of the metastore:
// packages, their immutable revisions and the tags pointing at them,
// as well as the archive paths used by backends that lay metadata
// out on a key-value or file-like medium.
package model
