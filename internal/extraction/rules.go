package extraction

// Rules used by the extraction strategies. Group indexes differ per field:
// billing cycle and the renewal fallback read the whole match.
var (
	PaymentTermsRule = PatternRule{
		Name:       FieldPaymentTerms,
		Patterns:   mustPatterns(`(Net\s*\d+)`, `(\d+\s*days from invoice date)`),
		Confidence: 0.95,
		Group:      1,
	}

	BillingCycleRule = PatternRule{
		Name:       FieldBillingCycle,
		Patterns:   mustPatterns(`\$\d+[\.,\d]*\s*(per month|per year|monthly|annually|quarterly)`),
		Confidence: 0.92,
		Group:      0,
	}

	TextualRepresentativeRule = PatternRule{
		Name: FieldTextualRepresentative,
		Patterns: mustPatterns(
			`(?:authorized representatives|primary contact|contact for notices)\s*:\s*([A-Z][a-z]+ [A-Z][a-z]+)`,
			`([A-Z][a-z]+ [A-Z][a-z]+)\s*,?\s*shall be the authorized representatives`,
		),
		Confidence: 0.80,
		Group:      1,
	}

	SignatureBlockRule = PatternRule{
		Name:       FieldSignatureBlockSignatory,
		Patterns:   mustPatterns(`By:\s*Name:\s*(.*?)\n`, `By:\s*([^\n]+)\n\s*Title:`),
		Confidence: 0.98,
		Group:      1,
	}

	RenewalFallbackRule = PatternRule{
		Name:       FieldRenewalTerms,
		Patterns:   mustPatterns(`([^\.!?]*?(?:term of this agreement|expiration|renew|terminate)[^\.!?]*[\.!?])`),
		Confidence: 0.70,
		Group:      0,
	}
)
