package discount

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type specJSON struct {
	Type     Kind            `json:"type"`
	Value    decimal.Decimal `json:"value"`
	IsActive *bool           `json:"isActive,omitempty"`
}

// MarshalJSON renders {"type":"percentage","value":"10","isActive":true}.
func (s Spec) MarshalJSON() ([]byte, error) {
	active := s.Active
	out := specJSON{IsActive: &active}
	if s.Discount != nil {
		out.Type = s.Discount.Kind()
		out.Value = s.Discount.Value()
	}
	return json.Marshal(out)
}

// UnmarshalJSON validates the variant. A missing isActive means active.
func (s *Spec) UnmarshalJSON(data []byte) error {
	var in specJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	d, err := New(in.Type, in.Value)
	if err != nil {
		return err
	}
	s.Discount = d
	s.Active = in.IsActive == nil || *in.IsActive
	return nil
}
