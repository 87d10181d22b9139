// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"strings"
)

// ValidateArticleID checks that id is non-empty and safe to use as a single path element.
func ValidateArticleID(id string) error {
	if id == "" {
		return ErrEmptyArticleID
	}
	if id == "." || id == ".." || strings.HasPrefix(id, ".") || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidArticleID, id)
	}
	return nil
}

// ValidateArticle checks that an article can be written to the store. Only the
// structure is checked: a record without any text is still a valid job.
func ValidateArticle(article *Article) error {
	if article == nil {
		return fmt.Errorf("%w: article is nil", ErrInvalidArticle)
	}

	if err := ValidateArticleID(article.ArticleID); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArticle, err)
	}

	return nil
}

// ValidateZone checks that zone is one of the store zones.
func ValidateZone(zone Zone) error {
	if !zone.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidZone, zone)
	}
	return nil
}

// ValidateAttachmentName checks that an attachment can live next to the record
// without colliding with store bookkeeping files.
func ValidateAttachmentName(name, articleID string) error {
	if err := ValidateArticleID(name); err != nil {
		return fmt.Errorf("attachment %q: %w", name, err)
	}
	if name == articleID+".json" || name == FailureNoteFile {
		return fmt.Errorf("attachment %q collides with a store file", name)
	}
	return nil
}
