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

import "errors"

// Domain validation errors
var (
	// ErrInvalidArticle indicates an Article failed validation.
	ErrInvalidArticle = errors.New("invalid article")

	// ErrEmptyArticleID indicates the ArticleID field is empty.
	ErrEmptyArticleID = errors.New("article id cannot be empty")

	// ErrInvalidArticleID indicates the ArticleID cannot be used as a folder name.
	ErrInvalidArticleID = errors.New("article id is not a valid folder name")

	// ErrNoContent indicates title, description and content are all empty.
	ErrNoContent = errors.New("no content")


	// ErrUnknownField indicates an enrichment field name is not recognised.
	ErrUnknownField = errors.New("unknown enrichment field")

	// ErrInvalidZone indicates a zone name is not one of the four store zones.
	ErrInvalidZone = errors.New("invalid zone")
)
