package extraction

// FieldName is the canonical name of a contract field.
type FieldName string

const (
	FieldCustomerName            FieldName = "customer_name"
	FieldVendorName              FieldName = "vendor_name"
	FieldSignatureBlockSignatory FieldName = "signature_block_signatory"
	FieldTextualRepresentative   FieldName = "textual_representative"
	FieldAuthorizedSignatory     FieldName = "authorized_signatory"
	FieldPaymentTerms            FieldName = "payment_terms"
	FieldBillingCycle            FieldName = "billing_cycle"
	FieldRenewalTerms            FieldName = "renewal_terms"
)

// AllFields lists every canonical field in declaration order.
var AllFields = []FieldName{
	FieldCustomerName,
	FieldVendorName,
	FieldSignatureBlockSignatory,
	FieldTextualRepresentative,
	FieldAuthorizedSignatory,
	FieldPaymentTerms,
	FieldBillingCycle,
	FieldRenewalTerms,
}

// FieldSet holds at most one candidate per canonical field. A nil slot means
// the field is absent. AuthorizedSignatory is derived during consolidation.
type FieldSet struct {
	CustomerName            *Candidate
	VendorName              *Candidate
	SignatureBlockSignatory *Candidate
	TextualRepresentative   *Candidate
	AuthorizedSignatory     *Candidate
	PaymentTerms            *Candidate
	BillingCycle            *Candidate
	RenewalTerms            *Candidate
}

// Get returns the candidate stored under name, or nil.
func (fs *FieldSet) Get(name FieldName) *Candidate {
	switch name {
	case FieldCustomerName:
		return fs.CustomerName
	case FieldVendorName:
		return fs.VendorName
	case FieldSignatureBlockSignatory:
		return fs.SignatureBlockSignatory
	case FieldTextualRepresentative:
		return fs.TextualRepresentative
	case FieldAuthorizedSignatory:
		return fs.AuthorizedSignatory
	case FieldPaymentTerms:
		return fs.PaymentTerms
	case FieldBillingCycle:
		return fs.BillingCycle
	case FieldRenewalTerms:
		return fs.RenewalTerms
	}
	return nil
}

// Present reports whether name has a candidate.
func (fs *FieldSet) Present(name FieldName) bool {
	return fs.Get(name) != nil
}
