package core

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// Key is a fixed-width digest used to index content such as source URLs.
type Key uint64

// KeyFromContent generates a deterministic key from text content using BLAKE2b hashing.
// This ensures that identical content produces identical keys.
func KeyFromContent(text string) Key {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return Key(binary.LittleEndian.Uint64(sum))
}

// Zone names one partition of the article store.
// A job folder resides in exactly one zone at any instant.
type Zone string

const (
	ZoneQueue      Zone = "queue"
	ZoneInProgress Zone = "inprogress"
	ZoneCompleted  Zone = "completed"
	ZoneFailed     Zone = "failed"
)

// Zones lists every zone in lifecycle order.
var Zones = []Zone{ZoneQueue, ZoneInProgress, ZoneCompleted, ZoneFailed}

// Valid reports whether z is one of the four known zones.
func (z Zone) Valid() bool {
	switch z {
	case ZoneQueue, ZoneInProgress, ZoneCompleted, ZoneFailed:
		return true
	}
	return false
}

// Field names an enrichment field computed by an enrichment stage.
type Field string

const (
	FieldRecommendedCategory Field = "recommended_category"
	FieldSuggestedCategory   Field = "suggested_category"
	FieldRewordedTitle       Field = "reworded_title"
	FieldRewordedDescription Field = "reworded_description"
	FieldRewordedContent     Field = "reworded_content"
	FieldHeadlines           Field = "headlines"
)

// Fields lists every known enrichment field.
var Fields = []Field{
	FieldRecommendedCategory,
	FieldSuggestedCategory,
	FieldRewordedTitle,
	FieldRewordedDescription,
	FieldRewordedContent,
	FieldHeadlines,
}

// Source identifies the publication an article came from.
type Source struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// Enrichment holds the fields computed by enrichment stages.
// Every field is absent until a stage succeeds for it.
type Enrichment struct {
	RecommendedCategory string   `json:"recommended_category,omitempty"`
	SuggestedCategory   string   `json:"suggested_category,omitempty"`
	RewordedTitle       string   `json:"reworded_title,omitempty"`
	RewordedDescription string   `json:"reworded_description,omitempty"`
	RewordedContent     string   `json:"reworded_content,omitempty"`
	Headlines           []string `json:"headlines,omitempty"`
}

// Article is the JSON record stored in every job folder.
// Source fields are copied verbatim from the news source and never change after fetch.
type Article struct {
	ArticleID   string    `json:"article_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	URL         string    `json:"url"`
	URLToImage  string    `json:"url_to_image,omitempty"`
	Author      string    `json:"author,omitempty"`
	Source      Source    `json:"source"`
	PublishedAt string    `json:"published_at,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`

	// Attachment is the file name of a binary asset stored next to the record.
	Attachment string `json:"attachment,omitempty"`

	Enrichment
}

// HasContent reports whether any of title, description or content carries text.
func (a *Article) HasContent() bool {
	return strings.TrimSpace(a.Title) != "" ||
		strings.TrimSpace(a.Description) != "" ||
		strings.TrimSpace(a.Content) != ""
}

// Usable reports whether a fetched record is worth enqueueing.
// Records with neither a title nor a URL are dropped at fetch time.
func (a *Article) Usable() bool {
	return strings.TrimSpace(a.Title) != "" || strings.TrimSpace(a.URL) != ""
}

// EnrichmentValue returns the stored value of an enrichment field and whether it is present.
// Headlines are joined with newlines.
func (a *Article) EnrichmentValue(field Field) (string, bool) {
	var v string
	switch field {
	case FieldRecommendedCategory:
		v = a.RecommendedCategory
	case FieldSuggestedCategory:
		v = a.SuggestedCategory
	case FieldRewordedTitle:
		v = a.RewordedTitle
	case FieldRewordedDescription:
		v = a.RewordedDescription
	case FieldRewordedContent:
		v = a.RewordedContent
	case FieldHeadlines:
		v = strings.Join(a.Headlines, "\n")
	default:
		return "", false
	}
	return v, strings.TrimSpace(v) != ""
}

// SetEnrichment stores value in the named enrichment field.
// Headlines are split on newlines, with blank lines dropped.
func (a *Article) SetEnrichment(field Field, value string) error {
	switch field {
	case FieldRecommendedCategory:
		a.RecommendedCategory = value
	case FieldSuggestedCategory:
		a.SuggestedCategory = value
	case FieldRewordedTitle:
		a.RewordedTitle = value
	case FieldRewordedDescription:
		a.RewordedDescription = value
	case FieldRewordedContent:
		a.RewordedContent = value
	case FieldHeadlines:
		a.Headlines = a.Headlines[:0]
		for _, line := range strings.Split(value, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				a.Headlines = append(a.Headlines, line)
			}
		}
	default:
		return ErrUnknownField
	}
	return nil
}

// EnrichedFields returns the enrichment fields that currently hold a value.
func (a *Article) EnrichedFields() []Field {
	var present []Field
	for _, f := range Fields {
		if _, ok := a.EnrichmentValue(f); ok {
			present = append(present, f)
		}
	}
	return present
}

// Attachment is a binary asset written into a job folder next to the record.
type Attachment struct {
	Name string
	Data []byte
}

// SeenEntry records which article a source URL was enqueued as.
type SeenEntry struct {
	ArticleID string
	FetchedAt time.Time
}

// FailureNoteFile is the name of the sidecar written into failed job folders.
const FailureNoteFile = "failure.json"

// FailureNote is the diagnostic sidecar written next to a failed record.
type FailureNote struct {
	ArticleID string    `json:"article_id"`
	Reason    string    `json:"reason"`
	FailedAt  time.Time `json:"failed_at"`
}
