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


package storage

import "errors"

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrStoreWrite indicates a job could not be persisted.
	ErrStoreWrite = errors.New("store write failed")

	// ErrAlreadyClaimed indicates the job is no longer in the queue zone:
	// another worker claimed it first, or it never existed.
	ErrAlreadyClaimed = errors.New("already claimed")

	// ErrIncompleteRecord indicates a record lacks the enrichment fields it is
	// being completed with.
	ErrIncompleteRecord = errors.New("record is missing required enrichment fields")

	// ErrNotOwned indicates an operation expected the job in the inprogress zone.
	ErrNotOwned = errors.New("job is not in progress")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")
)
