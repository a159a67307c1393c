// Package profile assembles the politician-profile workflow on top of
// package pipeline and turns its output into a [ProfileRecord].
//
// The stage graph is declared in the embedded stages.yaml catalog: a router
// gates on DisambiguatePerson, then either explains why the query is not an
// Indian politician or runs three research stages in parallel followed by
// consolidation, structured extraction and validation.
//
//	catalog, _ := profile.DefaultCatalog()
//	runner, _ := profile.NewRunner(catalog, c, profile.WithRunTimeout(5*time.Minute))
//	result, err := runner.Run(ctx, "Amit Shah")
//	if err == nil && result.Profile != nil {
//	    fmt.Println(result.Profile.Title)
//	}
package profile
