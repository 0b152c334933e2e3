package model

import (
	"testing"
)

func TestValidateTagName(t *testing.T) {
	type args struct {
		name string
	}
	tests := []struct {
		name    string
		args    args
		wantErr bool
	}{
		{
			name: "simple",
			args: args{name: "production"},
		},
		{
			name: "version like",
			args: args{name: "v1.0.1-rc+build.2"},
		},
		{
			name:    "empty",
			args:    args{name: ""},
			wantErr: true,
		},
		{
			name:    "spaces",
			args:    args{name: "not a tag"},
			wantErr: true,
		},
		{
			name:    "slash",
			args:    args{name: "refs/tags/v1"},
			wantErr: true,
		},
	}
	for _, tts := range tests {
		tt := tts
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := ValidateTagName(tt.args.name); (err != nil) != tt.wantErr {
				t.Errorf("ValidateTagName() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRevision(t *testing.T) {
	tests := []struct {
		name     string
		revision RevisionDescriptor
		wantErr  bool
	}{
		{
			name:     "complete",
			revision: RevisionDescriptor{PackageID: "pkg1", ID: "rev1"},
		},
		{
			name:     "missing package",
			revision: RevisionDescriptor{ID: "rev1"},
			wantErr:  true,
		},
		{
			name:     "missing ID",
			revision: RevisionDescriptor{PackageID: "pkg1"},
			wantErr:  true,
		},
	}
	for _, tts := range tests {
		tt := tts
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := ValidateRevision(tt.revision); (err != nil) != tt.wantErr {
				t.Errorf("ValidateRevision() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateTag(t *testing.T) {
	tests := []struct {
		name    string
		tag     TagDescriptor
		wantErr bool
	}{
		{
			name: "complete",
			tag:  TagDescriptor{PackageID: "pkg1", Name: "v1", RevisionID: "rev1"},
		},
		{
			name:    "missing revision",
			tag:     TagDescriptor{PackageID: "pkg1", Name: "v1"},
			wantErr: true,
		},
		{
			name:    "bad name",
			tag:     TagDescriptor{PackageID: "pkg1", Name: "a tag", RevisionID: "rev1"},
			wantErr: true,
		},
	}
	for _, tts := range tests {
		tt := tts
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := ValidateTag(tt.tag); (err != nil) != tt.wantErr {
				t.Errorf("ValidateTag() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
