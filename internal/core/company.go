package core

import "encoding/json"

// Company identifies the organization on backups and report exports.
type Company struct {
	Name  string `json:"name"`
	TaxID string `json:"taxId"`
}

// UnmarshalJSON also accepts the "cnpj" key written by older backups.
func (c *Company) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name  string `json:"name"`
		TaxID string `json:"taxId"`
		CNPJ  string `json:"cnpj"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Name = raw.Name
	c.TaxID = raw.TaxID
	if c.TaxID == "" {
		c.TaxID = raw.CNPJ
	}
	return nil
}

// DefaultCompany is used when no identity is configured.
var DefaultCompany = Company{
	Name:  "Querubin's Núcleo Educacional Ltda-me",
	TaxID: "05.210.023/0001/44",
}
