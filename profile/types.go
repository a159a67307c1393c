package profile

import (
	"errors"
	"regexp"
	"strings"
)

// DisambiguationResult is the structured output of the gate stage.
type DisambiguationResult struct {
	IsPolitician   bool   `json:"is_politician" jsonschema:"description=True only if this person is an Indian politician"`
	NormalizedName string `json:"normalized_name" jsonschema:"description=Canonical name or empty if not applicable"`
	EntityType     string `json:"entity_type" jsonschema:"description=e.g. politician, actor, businessperson, unknown"`
	Notes          string `json:"notes" jsonschema:"description=One-line identity or why not a politician"`
}

// ProfileRecord is the final, user-facing profile.
type ProfileRecord struct {
	Title         string `json:"title" jsonschema:"description=The current office without years (e.g. Chief Minister of Uttar Pradesh). Only if no office is held now: Former <highest role> (<years>)"`
	Biography     string `json:"biography" jsonschema:"description=8-12 sentence biography covering education, career and achievements"`
	CurrentStatus string `json:"current_status" jsonschema:"description=Present role and responsibilities, or Not in office with the latest update"`
}

var (
	yearPattern        = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	formerTitlePattern = regexp.MustCompile(`^Former .+\(.+\)$`)
)

// Validate reports every violation of the profile invariants: all fields
// set, and a title that is either a bare current office (no years) or
// "Former <role> (<years>)".
func (record ProfileRecord) Validate() error {
	var violations []error
	if strings.TrimSpace(record.Title) == "" {
		violations = append(violations, errors.New("title is empty"))
	}
	if strings.TrimSpace(record.Biography) == "" {
		violations = append(violations, errors.New("biography is empty"))
	}
	if strings.TrimSpace(record.CurrentStatus) == "" {
		violations = append(violations, errors.New("current status is empty"))
	}

	title := strings.TrimSpace(record.Title)
	if strings.HasPrefix(title, "Former ") {
		if !formerTitlePattern.MatchString(title) {
			violations = append(violations, errors.New("former title must end with a parenthesised year range"))
		}
	} else if yearPattern.MatchString(title) {
		violations = append(violations, errors.New("current office title must not contain years"))
	}

	if len(violations) == 0 {
		return nil
	}
	return errors.Join(violations...)
}
