package core

import (
	"errors"
	"testing"
)

func TestValidateArticle(t *testing.T) {
	tests := []struct {
		name    string
		article *Article
		wantErr error
	}{
		{
			name:    "valid article",
			article: &Article{ArticleID: "abc", Title: "A", URL: "https://example.com"},
			wantErr: nil,
		},
		{
			name:    "valid with title only",
			article: &Article{ArticleID: "abc", Title: "A"},
			wantErr: nil,
		},
		{
			name:    "valid with url only",
			article: &Article{ArticleID: "abc", URL: "https://example.com"},
			wantErr: nil,
		},
		{
			name:    "nil article",
			article: nil,
			wantErr: ErrInvalidArticle,
		},
		{
			name:    "empty id",
			article: &Article{Title: "A"},
			wantErr: ErrEmptyArticleID,
		},
		{
			name:    "path separator in id",
			article: &Article{ArticleID: "../escape", Title: "A"},
			wantErr: ErrInvalidArticleID,
		},
		{
			name:    "hidden id",
			article: &Article{ArticleID: ".staging", Title: "A"},
			wantErr: ErrInvalidArticleID,
		},
		{
			name:    "neither title nor url",
			article: &Article{ArticleID: "abc", Description: "B", Content: "C"},
			wantErr: nil,
		},
		{
			name:    "no text at all",
			article: &Article{ArticleID: "abc"},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArticle(tt.article)

			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateArticle() unexpected error = %v", err)
				}
				return
			}

			if err == nil {
				t.Errorf("ValidateArticle() expected error %v, got nil", tt.wantErr)
				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateArticle() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidArticle) {
				t.Errorf("ValidateArticle() error should wrap ErrInvalidArticle, got %v", err)
			}
		})
	}
}

func TestValidateZone(t *testing.T) {
	for _, z := range Zones {
		if err := ValidateZone(z); err != nil {
			t.Errorf("ValidateZone(%q) unexpected error = %v", z, err)
		}
	}

	if err := ValidateZone("archive"); !errors.Is(err, ErrInvalidZone) {
		t.Errorf("ValidateZone(archive) error = %v, want %v", err, ErrInvalidZone)
	}
}

func TestValidateAttachmentName(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		wantErr bool
	}{
		{"image", "image.jpg", false},
		{"record file", "abc.json", true},
		{"failure sidecar", FailureNoteFile, true},
		{"hidden file", ".claim", true},
		{"nested path", "img/a.jpg", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAttachmentName(tt.file, "abc")
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAttachmentName(%q) error = %v, wantErr %v", tt.file, err, tt.wantErr)
			}
		})
	}
}
