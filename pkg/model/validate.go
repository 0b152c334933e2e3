package model

import (
	"fmt"
	"regexp"
)

var tagNameRe = regexp.MustCompile(`^[\w\-+.]+$`)

// ValidatePackageID verifies that a package ID may be used with any
// backend.
//
// Package IDs are opaque, backend-meaningful strings: the only
// requirement imposed here is non-emptiness.
func ValidatePackageID(id string) error {
	if id == "" {
		return fmt.Errorf("empty field: package ID is empty")
	}
	return nil
}

// ValidateTagName verifies that a tag name contains only word
// characters, hyphens, pluses and dots
func ValidateTagName(name string) error {
	if name == "" {
		return fmt.Errorf("empty field: tag name is empty")
	}
	if !tagNameRe.MatchString(name) {
		return fmt.Errorf("invalid name: tag name %q contains unsupported characters", name)
	}
	return nil
}

// ValidateRevision verifies that a revision descriptor is complete
// enough to be persisted
func ValidateRevision(revision RevisionDescriptor) error {
	if revision.PackageID == "" {
		return fmt.Errorf("empty field: revision package ID is empty")
	}
	if revision.ID == "" {
		return fmt.Errorf("empty field: revision ID is empty")
	}
	return nil
}

// ValidateTag verifies that a tag descriptor is complete enough to be
// persisted
func ValidateTag(tag TagDescriptor) error {
	if tag.PackageID == "" {
		return fmt.Errorf("empty field: tag package ID is empty")
	}
	if tag.RevisionID == "" {
		return fmt.Errorf("empty field: tag revision ID is empty")
	}
	return ValidateTagName(tag.Name)
}
