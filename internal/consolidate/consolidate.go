// Package consolidate merges strategy results into the final contract record
// and lists the checklist fields that could not be found.
package consolidate

import (
	"github.com/kalambet/contractd/internal/extraction"
)

// Checklist is the ordered set of fields whose absence is reported as a gap.
// The two raw signatory fields only feed AuthorizedSignatory and are not
// checked.
var Checklist = []extraction.FieldName{
	extraction.FieldCustomerName,
	extraction.FieldVendorName,
	extraction.FieldAuthorizedSignatory,
	extraction.FieldPaymentTerms,
	extraction.FieldBillingCycle,
	extraction.FieldRenewalTerms,
}

// PartyIdentification is the party branch of the record.
type PartyIdentification struct {
	Customer              *extraction.Candidate `json:"customer"`
	Vendor                *extraction.Candidate `json:"vendor"`
	AuthorizedSignatories *extraction.Candidate `json:"authorized_signatories"`
}

// PaymentStructure is the payment branch of the record.
type PaymentStructure struct {
	PaymentTerms *extraction.Candidate `json:"payment_terms"`
}

// RevenueClassification is the revenue branch of the record.
type RevenueClassification struct {
	BillingCycle *extraction.Candidate `json:"billing_cycle"`
	RenewalTerms *extraction.Candidate `json:"renewal_terms"`
}

// ExtractedData is the three-branch tree stored with a completed contract.
// Absent leaves are nil and serialize as JSON null; every key is always
// present.
type ExtractedData struct {
	PartyIdentification   PartyIdentification   `json:"party_identification"`
	PaymentStructure      PaymentStructure      `json:"payment_structure"`
	RevenueClassification RevenueClassification `json:"revenue_classification"`
}

// Result is the outcome of consolidation.
type Result struct {
	ExtractedData  ExtractedData `json:"extracted_data"`
	IdentifiedGaps []string      `json:"identified_gaps"`
	GapsCount      int           `json:"gaps_count"`
}

// Resolve fills fs.AuthorizedSignatory: the signature block signatory wins
// over the textual representative. With neither present the field is
// cleared.
func Resolve(fs *extraction.FieldSet) {
	switch {
	case fs.SignatureBlockSignatory != nil:
		fs.AuthorizedSignatory = fs.SignatureBlockSignatory
	case fs.TextualRepresentative != nil:
		fs.AuthorizedSignatory = fs.TextualRepresentative
	default:
		fs.AuthorizedSignatory = nil
	}
}

// Finalize resolves fs and builds the record tree and gap list. fs is
// modified in place by Resolve.
func Finalize(fs *extraction.FieldSet) Result {
	Resolve(fs)

	gaps := make([]string, 0, len(Checklist))
	for _, name := range Checklist {
		if !fs.Present(name) {
			gaps = append(gaps, string(name))
		}
	}

	return Result{
		ExtractedData: ExtractedData{
			PartyIdentification: PartyIdentification{
				Customer:              fs.CustomerName,
				Vendor:                fs.VendorName,
				AuthorizedSignatories: fs.AuthorizedSignatory,
			},
			PaymentStructure: PaymentStructure{
				PaymentTerms: fs.PaymentTerms,
			},
			RevenueClassification: RevenueClassification{
				BillingCycle: fs.BillingCycle,
				RenewalTerms: fs.RenewalTerms,
			},
		},
		IdentifiedGaps: gaps,
		GapsCount:      len(gaps),
	}
}

// Customer returns the customer name, or "".
func (d ExtractedData) Customer() string {
	return d.PartyIdentification.Customer.StringValue()
}

// Vendor returns the vendor name, or "".
func (d ExtractedData) Vendor() string {
	return d.PartyIdentification.Vendor.StringValue()
}
