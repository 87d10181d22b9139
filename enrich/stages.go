package enrich

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/poiesic/newsproc/ai"
	"github.com/poiesic/newsproc/core"
)

// MaxHeadlines caps the number of generated headlines kept per article.
const MaxHeadlines = 5

// Stage is one named enrichment: an instruction sent to the oracle together with
// text taken from the article, producing one enrichment field.
type Stage struct {
	// Name identifies the stage in logs and metrics. Defaults to the field name.
	Name string

	// Field receives the stage's result.
	Field core.Field

	// Instruction is sent to the oracle as the system prompt.
	Instruction string

	// Input extracts the text to enrich. A blank result skips the stage.
	Input func(*core.Article) string

	// Parse post-processes the oracle's answer. Optional.
	Parse func(answer string) (string, error)
}

func (s Stage) name() string {
	if s.Name != "" {
		return s.Name
	}
	return string(s.Field)
}

func (s Stage) validate() error {
	switch {
	case s.Field == "":
		return fmt.Errorf("%w: stage %q has no field", ErrInvalidStage, s.Name)
	case strings.TrimSpace(s.Instruction) == "":
		return fmt.Errorf("%w: stage %q has no instruction", ErrInvalidStage, s.name())
	case s.Input == nil:
		return fmt.Errorf("%w: stage %q has no input", ErrInvalidStage, s.name())
	}
	var probe core.Article
	if err := probe.SetEnrichment(s.Field, "x"); err != nil {
		return fmt.Errorf("%w: stage %q: %w", ErrInvalidStage, s.name(), err)
	}
	return nil
}

var (
	recommendedCategoryInstruction = "Given the title, description and content of a news article, identify the most " +
		"suitable category from the list " + strings.Join(ai.Categories, ", ") + ". " +
		"Answer with the category name only. If none matches then answer '" + ai.OtherCategory + "'."

	suggestedCategoryInstruction = "Given the title, description and content of a news article, suggest a short " +
		"category name that best describes its subject, e.g. 'Crypto' or 'Climate News'. " +
		"Answer with the category name only."

	rewordTitleInstruction       = "Paraphrase this article title in a cleaner and more engaging way. Answer with the new title only."
	rewordDescriptionInstruction = "Paraphrase this article description that briefs on the title. Answer with the new description only."
	rewordContentInstruction     = "Paraphrase this article content without losing meaning and in an engaging way. Answer with the new content only."

	headlinesInstruction = fmt.Sprintf("Generate %d distinct headlines for this news article. "+
		"Write one headline per line with no numbering and no commentary.", MaxHeadlines)
)

// articleContext renders title, description and content as one oracle input.
// It is blank when all three are blank.
func articleContext(a *core.Article) string {
	title, description, content := CleanText(a.Title), CleanText(a.Description), CleanText(a.Content)
	if title == "" && description == "" && content == "" {
		return ""
	}
	return fmt.Sprintf("Title: %s\n\nDescription: %s\n\nContent: %s", title, description, content)
}

// CategoryStages classifies an article into the fixed category list and
// suggests a free-form category.
func CategoryStages() []Stage {
	return []Stage{
		{
			Field:       core.FieldRecommendedCategory,
			Instruction: recommendedCategoryInstruction,
			Input:       articleContext,
			Parse: func(answer string) (string, error) {
				return ai.NormalizeCategory(answer), nil
			},
		},
		{
			Field:       core.FieldSuggestedCategory,
			Instruction: suggestedCategoryInstruction,
			Input:       articleContext,
			Parse:       parseShortAnswer,
		},
	}
}

// RewordStages paraphrase title, description and content independently.
func RewordStages() []Stage {
	return []Stage{
		{
			Field:       core.FieldRewordedTitle,
			Instruction: rewordTitleInstruction,
			Input:       func(a *core.Article) string { return CleanText(a.Title) },
		},
		{
			Field:       core.FieldRewordedDescription,
			Instruction: rewordDescriptionInstruction,
			Input:       func(a *core.Article) string { return CleanText(a.Description) },
		},
		{
			Field:       core.FieldRewordedContent,
			Instruction: rewordContentInstruction,
			Input:       func(a *core.Article) string { return CleanText(a.Content) },
		},
	}
}

// HeadlineStages generate alternative headlines.
func HeadlineStages() []Stage {
	return []Stage{
		{
			Field:       core.FieldHeadlines,
			Instruction: headlinesInstruction,
			Input:       articleContext,
			Parse:       parseHeadlines,
		},
	}
}

// AllStages returns every predefined stage.
func AllStages() []Stage {
	var stages []Stage
	stages = append(stages, CategoryStages()...)
	stages = append(stages, RewordStages()...)
	stages = append(stages, HeadlineStages()...)
	return stages
}

// StageSet returns the predefined stages registered under name:
// "categorize", "reword", "headlines" or "all".
func StageSet(name string) ([]Stage, error) {
	switch strings.ToLower(name) {
	case "categorize", "category":
		return CategoryStages(), nil
	case "reword":
		return RewordStages(), nil
	case "headlines", "headline":
		return HeadlineStages(), nil
	case "all", "enrich", "":
		return AllStages(), nil
	}
	return nil, fmt.Errorf("%w: unknown stage set %q", ErrInvalidStage, name)
}

// parseShortAnswer keeps the first non-blank line, without surrounding quotes
// or a trailing period.
func parseShortAnswer(answer string) (string, error) {
	for _, line := range strings.Split(answer, "\n") {
		line = strings.Trim(strings.TrimSpace(line), "\"'`*.")
		if line != "" {
			return line, nil
		}
	}
	return "", ai.ErrEmptyResponse
}

var listMarkerExpr = regexp.MustCompile(`^\s*(?:[-*•]+|\d+[.)]|\(\d+\))\s*`)

// parseHeadlines splits the answer into lines, strips list markers and quotes,
// drops duplicates and keeps at most MaxHeadlines.
func parseHeadlines(answer string) (string, error) {
	seen := make(map[string]struct{})
	var headlines []string
	for _, line := range strings.Split(answer, "\n") {
		line = listMarkerExpr.ReplaceAllString(line, "")
		line = strings.Trim(strings.TrimSpace(line), "\"'`*")
		line = strings.TrimSpace(strings.TrimPrefix(line, "Headline:"))
		if line == "" {
			continue
		}
		key := strings.ToLower(line)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		headlines = append(headlines, line)
		if len(headlines) == MaxHeadlines {
			break
		}
	}
	if len(headlines) == 0 {
		return "", ai.ErrEmptyResponse
	}
	return strings.Join(headlines, "\n"), nil
}
