package model

import (
	"testing"
)

func TestGetArchivePathToHead(t *testing.T) {
	type args struct {
		packageID string
	}
	tests := []struct {
		name string
		args args
		want string
	}{
		{
			name: "pkg1",
			args: args{packageID: "pkg1"},
			want: "packages/pkg1/head.yaml",
		},
	}
	for _, tts := range tests {
		tt := tts
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := GetArchivePathToHead(tt.args.packageID); got != tt.want {
				t.Errorf("GetArchivePathToHead() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetArchivePathToRevision(t *testing.T) {
	type args struct {
		packageID  string
		revisionID string
	}
	tests := []struct {
		name string
		args args
		want string
	}{
		{
			name: "rev1",
			args: args{packageID: "pkg1", revisionID: "rev1"},
			want: "packages/pkg1/revisions/rev1.yaml",
		},
	}
	for _, tts := range tests {
		tt := tts
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := GetArchivePathToRevision(tt.args.packageID, tt.args.revisionID); got != tt.want {
				t.Errorf("GetArchivePathToRevision() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetArchivePathToTag(t *testing.T) {
	type args struct {
		packageID string
		tagName   string
	}
	tests := []struct {
		name string
		args args
		want string
	}{
		{
			name: "tag1",
			args: args{packageID: "pkg1", tagName: "tag1"},
			want: "packages/pkg1/tags/tag1.yaml",
		},
	}
	for _, tts := range tests {
		tt := tts
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := GetArchivePathToTag(tt.args.packageID, tt.args.tagName); got != tt.want {
				t.Errorf("GetArchivePathToTag() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestArchivePathRoundTrip(t *testing.T) {
	t.Parallel()
	pth := GetArchivePathToTag("pkg1", "v1.0.1")
	if got := TagNameFromArchivePath("pkg1", pth); got != "v1.0.1" {
		t.Errorf("TagNameFromArchivePath() = %v, want %v", got, "v1.0.1")
	}
	pth = GetArchivePathToRevision("pkg1", "someRevision")
	if got := RevisionIDFromArchivePath("pkg1", pth); got != "someRevision" {
		t.Errorf("RevisionIDFromArchivePath() = %v, want %v", got, "someRevision")
	}
}
