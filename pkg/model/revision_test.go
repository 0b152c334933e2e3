package model

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRevisionDescriptor(t *testing.T) {
	r := NewRevisionDescriptor(
		RevisionPackageID("pkg1"),
		RevisionMessage("initial"),
		RevisionContributor(Contributor{Email: "test@example.com"}),
	)
	require.NotNil(t, r)
	assert.Equal(t, "pkg1", r.PackageID)
	assert.Equal(t, "initial", r.Message)
	assert.NotEmpty(t, r.ID)
	assert.True(t, IsRevisionID(r.ID))
	assert.False(t, r.Timestamp.IsZero())
	assert.Empty(t, r.Parent)

	other := NewRevisionDescriptor(RevisionPackageID("pkg1"), RevisionParent(r.ID))
	assert.NotEqual(t, r.ID, other.ID)
	assert.Equal(t, r.ID, other.Parent)
}

func TestIsRevisionID(t *testing.T) {
	assert.False(t, IsRevisionID("v1.0.1"))
	assert.False(t, IsRevisionID("production"))
	assert.False(t, IsRevisionID(""))
	assert.True(t, IsRevisionID(NewRevisionDescriptor().ID))
}

func TestRevisionDescriptorsSort(t *testing.T) {
	base := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)
	revs := RevisionDescriptors{
		{PackageID: "pkg1", ID: "a", Timestamp: base},
		{PackageID: "pkg1", ID: "c", Timestamp: base.Add(2 * time.Minute)},
		{PackageID: "pkg1", ID: "b", Timestamp: base.Add(time.Minute)},
	}
	sort.Sort(revs)
	assert.Equal(t, "c", revs[0].ID)
	assert.Equal(t, "b", revs[1].ID)
	assert.Equal(t, "a", revs[2].ID)
	assert.Equal(t, "a", revs.Last().ID)
}
