package address

import "strings"

// Address is the part of a billing or shipping address tax depends on
type Address struct {
	Country    string `json:"country,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	VatNumber  string `json:"vat_number,omitempty"`
}

// IsEmpty reports whether the address carries no tax relevant field
func (a *Address) IsEmpty() bool {
	return a == nil ||
		strings.TrimSpace(a.Country) == "" &&
			strings.TrimSpace(a.PostalCode) == "" &&
			strings.TrimSpace(a.VatNumber) == ""
}

func (a *Address) Clone() *Address {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}
