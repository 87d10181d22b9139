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

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/newsproc/core"
)

// MarshalSeenEntry encodes an entry as the article ID followed by the fetch time
// in Unix microseconds.
func MarshalSeenEntry(entry *core.SeenEntry) []byte {
	micros := entry.FetchedAt.UnixMicro()
	buf := make([]byte, ord.String.Size(entry.ArticleID)+varint.Int64.Size(micros))
	n := ord.String.Marshal(entry.ArticleID, buf)
	varint.Int64.Marshal(micros, buf[n:])
	return buf
}

// UnmarshalSeenEntry decodes data produced by MarshalSeenEntry.
func UnmarshalSeenEntry(data []byte) (*core.SeenEntry, error) {
	id, n, err := ord.String.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: article id: %w", ErrSerializationFailed, err)
	}
	micros, _, err := varint.Int64.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: fetched at: %w", ErrSerializationFailed, err)
	}
	return &core.SeenEntry{
		ArticleID: id,
		FetchedAt: time.UnixMicro(micros).UTC(),
	}, nil
}
