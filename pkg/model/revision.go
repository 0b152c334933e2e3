package model

import (
	"fmt"
	"time"

	"github.com/segmentio/ksuid"
)

// RevisionDescriptor represents a single immutable revision of a package.
//
// A revision is a full snapshot of the package metadata at one point in
// time. Revisions form a linear chain per package: Parent holds the ID of
// the revision this one was created from, and is empty only for the first
// revision of a package.
type RevisionDescriptor struct {
	PackageID    string        `json:"packageID" yaml:"packageID"`
	ID           string        `json:"id" yaml:"id"`
	Parent       string        `json:"parent,omitempty" yaml:"parent,omitempty"`
	Message      string        `json:"message,omitempty" yaml:"message,omitempty"`
	Timestamp    time.Time     `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	Contributors []Contributor `json:"contributors,omitempty" yaml:"contributors,omitempty"`
	_            struct{}
}

// RevisionDescriptors is a sortable slice of RevisionDescriptor,
// ordered newest first
type RevisionDescriptors []RevisionDescriptor

func (r RevisionDescriptors) Swap(i, j int) {
	r[i], r[j] = r[j], r[i]
}
func (r RevisionDescriptors) Len() int {
	return len(r)
}
func (r RevisionDescriptors) Less(i, j int) bool {
	if !r[i].Timestamp.Equal(r[j].Timestamp) {
		return r[i].Timestamp.After(r[j].Timestamp)
	}
	// ksuids embed a timestamp with second resolution: fall back on
	// their lexicographic order for revisions created within the
	// same clock reading
	return r[i].ID > r[j].ID
}

// Last returns the oldest revision in a newest-first slice
func (r RevisionDescriptors) Last() RevisionDescriptor {
	return r[len(r)-1]
}

func defaultRevisionDescriptor() *RevisionDescriptor {
	id, err := ksuid.NewRandom()
	if err != nil {
		panic(fmt.Sprintf("cannot generate random ksuid: %v", err))
	}
	return &RevisionDescriptor{
		ID:        id.String(),
		Timestamp: GetRevisionTimeStamp(),
	}
}

// NewRevisionDescriptor builds a new revision descriptor with a fresh
// unique ID and creation timestamp
func NewRevisionDescriptor(opts ...RevisionDescriptorOption) *RevisionDescriptor {
	r := defaultRevisionDescriptor()
	for _, apply := range opts {
		apply(r)
	}
	return r
}

// IsRevisionID tells whether a reference string may be a revision ID,
// as opposed to a tag name. Revision IDs are ksuid strings.
func IsRevisionID(ref string) bool {
	_, err := ksuid.Parse(ref)
	return err == nil
}

// GetRevisionTimeStamp yields the current UTC time, as recorded in
// revision and tag descriptors
func GetRevisionTimeStamp() time.Time {
	t := time.Now()
	return t.UTC()
}
