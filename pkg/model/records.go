package model

// RevisionRecord is the archive representation of a revision: the
// descriptor together with the full metadata document it snapshots.
// Records are written once and never rewritten.
type RevisionRecord struct {
	Descriptor RevisionDescriptor `json:"descriptor" yaml:"descriptor"`
	Content    []byte             `json:"content,omitempty" yaml:"content,omitempty"`
	_          struct{}
}

// HeadRecord is the archive representation of the mutable head pointer
// of a package. It is the only archive object that gets rewritten, and
// every rewrite must be atomic from a concurrent reader's perspective.
type HeadRecord struct {
	RevisionID string `json:"id" yaml:"id"`
	_          struct{}
}
