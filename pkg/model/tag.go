package model

import (
	"time"
)

// TagDescriptor represents a named pointer to a package revision.
//
// A tag is a name given to a revision, analogous to tags in git.
// Examples: v1.0.1, production. Tags are stable: once created they
// keep resolving to the same revision while the head moves on.
type TagDescriptor struct {
	PackageID    string        `json:"packageID" yaml:"packageID"`
	Name         string        `json:"name" yaml:"name"`
	RevisionID   string        `json:"id" yaml:"id"`
	Timestamp    time.Time     `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	Contributors []Contributor `json:"contributors,omitempty" yaml:"contributors,omitempty"`
	_            struct{}
}

// TagDescriptors is a sortable slice of TagDescriptor, ordered by name
type TagDescriptors []TagDescriptor

func (t TagDescriptors) Swap(i, j int) {
	t[i], t[j] = t[j], t[i]
}
func (t TagDescriptors) Len() int {
	return len(t)
}
func (t TagDescriptors) Less(i, j int) bool {
	return t[i].Name < t[j].Name
}

func defaultTagDescriptor() *TagDescriptor {
	return &TagDescriptor{
		Timestamp: GetRevisionTimeStamp(),
	}
}

// NewTagDescriptor builds a new tag descriptor with a creation timestamp
func NewTagDescriptor(opts ...TagDescriptorOption) *TagDescriptor {
	t := defaultTagDescriptor()
	for _, apply := range opts {
		apply(t)
	}
	return t
}
