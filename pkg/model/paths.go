package model

import (
	"fmt"
	"strings"
)

// Archive path layout used by key-value like backends:
//
//	packages/{packageID}/head.yaml
//	packages/{packageID}/revisions/{revisionID}.yaml
//	packages/{packageID}/tags/{tagName}.yaml

func getArchivePathToPackages() string {
	return "packages/"
}

// GetArchivePathPrefixToPackages yields the key prefix under which all
// package metadata lives
func GetArchivePathPrefixToPackages() string {
	return getArchivePathToPackages()
}

// GetArchivePathPrefixToPackage yields the key prefix for a single package
func GetArchivePathPrefixToPackage(packageID string) string {
	return fmt.Sprint(getArchivePathToPackages(), packageID, "/")
}

// GetArchivePathToHead yields the key of the head pointer of a package
func GetArchivePathToHead(packageID string) string {
	return fmt.Sprint(GetArchivePathPrefixToPackage(packageID), "head.yaml")
}

// GetArchivePathPrefixToRevisions yields the key prefix under which all
// revision records of a package live
func GetArchivePathPrefixToRevisions(packageID string) string {
	return fmt.Sprint(GetArchivePathPrefixToPackage(packageID), "revisions/")
}

// GetArchivePathToRevision yields the key of a single revision record
func GetArchivePathToRevision(packageID, revisionID string) string {
	return fmt.Sprint(GetArchivePathPrefixToRevisions(packageID), revisionID, ".yaml")
}

// GetArchivePathPrefixToTags yields the key prefix under which all tags
// of a package live
func GetArchivePathPrefixToTags(packageID string) string {
	return fmt.Sprint(GetArchivePathPrefixToPackage(packageID), "tags/")
}

// GetArchivePathToTag yields the key of a single tag record
func GetArchivePathToTag(packageID, tagName string) string {
	return fmt.Sprint(GetArchivePathPrefixToTags(packageID), tagName, ".yaml")
}

// TagNameFromArchivePath recovers a tag name from the key of a tag record
func TagNameFromArchivePath(packageID, path string) string {
	name := strings.TrimPrefix(path, GetArchivePathPrefixToTags(packageID))
	return strings.TrimSuffix(name, ".yaml")
}

// RevisionIDFromArchivePath recovers a revision ID from the key of a
// revision record
func RevisionIDFromArchivePath(packageID, path string) string {
	id := strings.TrimPrefix(path, GetArchivePathPrefixToRevisions(packageID))
	return strings.TrimSuffix(id, ".yaml")
}
