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


// Package storage defines the durable job store and seen-URL index used by newsproc.
//
// Every article is a job folder named after its ID. The folder lives in exactly
// one of four zones (queue, inprogress, completed, failed) and moves between
// them by atomic rename, so a zone listing never shows a partially written job.
//
// # Constructor Return Type Pattern
//
// Public constructors in backend packages return interfaces defined here:
//
//	store, err := fs.NewStore(root, logger)   // returns storage.ArticleStore
//	index, err := badger.NewSeenIndex(path)   // returns storage.SeenIndex
//
// Internal constructors (newStore, newBackend) return concrete types.
//
// # Lifecycle
//
//	Enqueue ─► queue ─Claim─► inprogress ─Complete─► completed
//	                              │
//	                              └──Fail──► failed
//
// Claim is the only cross-worker synchronization point: exactly one concurrent
// claimer of a given job succeeds, the rest receive ErrAlreadyClaimed.
//
// RequeueStale and RequeueFailed (see Maintainer) are operator recovery tools and
// are never called by workers.
//
// # Error Handling
//
// Errors are wrapped with context and can be checked with errors.Is:
//
//	if errors.Is(err, storage.ErrAlreadyClaimed) {
//	    // another worker owns the job
//	}
package storage
