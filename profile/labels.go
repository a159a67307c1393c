package profile

// StageLabel maps step names to the progress text shown while they run.
var StageLabel = map[string]string{
	"PoliticalProfileRouter":   "Starting",
	"DisambiguatePerson":       "Disambiguating entity",
	"ExplainNotPolitician":     "Explaining the match",
	"GovSources":               "Collecting govt sources",
	"EncyclopediaSources":      "Collecting encyclopedia/bio",
	"RecentUpdates":            "Fetching recent updates",
	"ParallelResearch":         "Running parallel research",
	"ConsolidateNotes":         "Consolidating notes",
	"ExtractProfile":           "Extracting structured profile",
	"ValidateProfile":          "Validating profile",
	"PoliticalProfilePipeline": "Running profile pipeline",
}

// Label returns the progress text for a step, falling back to
// "Working: <name>" for steps without a label.
func Label(step string) string {
	if label, ok := StageLabel[step]; ok {
		return label
	}
	return "Working: " + step
}
