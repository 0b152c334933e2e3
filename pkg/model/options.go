package model

// RevisionDescriptorOption is a functor to build revision descriptors
type RevisionDescriptorOption func(descriptor *RevisionDescriptor)

// RevisionPackageID sets the package owning this revision
func RevisionPackageID(id string) RevisionDescriptorOption {
	return func(r *RevisionDescriptor) {
		r.PackageID = id
	}
}

// RevisionMessage sets the message describing this revision
func RevisionMessage(m string) RevisionDescriptorOption {
	return func(r *RevisionDescriptor) {
		r.Message = m
	}
}

// RevisionParent sets the revision this one was created from
func RevisionParent(p string) RevisionDescriptorOption {
	return func(r *RevisionDescriptor) {
		r.Parent = p
	}
}

// RevisionContributors sets a list of contributors for the revision
func RevisionContributors(c []Contributor) RevisionDescriptorOption {
	return func(r *RevisionDescriptor) {
		r.Contributors = c
	}
}

// RevisionContributor sets a single contributor for the revision
func RevisionContributor(c Contributor) RevisionDescriptorOption {
	return RevisionContributors([]Contributor{c})
}

// TagDescriptorOption is a functor to build tag descriptors
type TagDescriptorOption func(descriptor *TagDescriptor)

// TagPackageID sets the package owning this tag
func TagPackageID(id string) TagDescriptorOption {
	return func(t *TagDescriptor) {
		t.PackageID = id
	}
}

// TagName sets a name for the tag
func TagName(name string) TagDescriptorOption {
	return func(t *TagDescriptor) {
		t.Name = name
	}
}

// TagRevision sets the revision the tag points at
func TagRevision(revisionID string) TagDescriptorOption {
	return func(t *TagDescriptor) {
		t.RevisionID = revisionID
	}
}

// TagContributors sets a list of contributors for the tag
func TagContributors(c []Contributor) TagDescriptorOption {
	return func(t *TagDescriptor) {
		t.Contributors = c
	}
}

// TagContributor sets a single contributor for the tag
func TagContributor(c Contributor) TagDescriptorOption {
	return TagContributors([]Contributor{c})
}
