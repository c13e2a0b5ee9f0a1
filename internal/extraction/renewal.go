package extraction

// RenewalValue is the value of a renewal_terms candidate produced by the
// semantic classifier. The regex fallback stores the matched sentence as a
// plain string instead.
type RenewalValue struct {
	Classification string `json:"classification"`
	Text           string `json:"text"`
}
