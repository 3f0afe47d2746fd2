package domain

import (
	"bytes"
	"encoding/json"
)

// Attribute keys carried on normalized points.
const (
	AttrCountry     = "country"
	AttrRegion      = "region"
	AttrStatus      = "status"
	AttrState       = "state"
	AttrDescription = "description"
)

// LooseString decodes a JSON string or number into its textual form.
// Any other JSON kind decodes to "" so the owning record is dropped later
// instead of failing the whole document.
type LooseString string

func (s *LooseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		*s = ""
		return nil
	}
	switch b[0] {
	case '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = LooseString(v)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		*s = LooseString(b)
	default:
		*s = ""
	}
	return nil
}

// FeedDocument is the body returned by the running-events feed.
type FeedDocument struct {
	Events []FeedEvent `json:"events"`
}

// FeedEvent is one raw entry of the running-events feed.
type FeedEvent struct {
	ID        LooseString `json:"id"`
	Name      string      `json:"name"`
	Latitude  LooseString `json:"latitude"`
	Longitude LooseString `json:"longitude"`
	Country   string      `json:"country,omitempty"`
	Region    string      `json:"region,omitempty"`
	Status    string      `json:"status,omitempty"`
}

// TabularRow maps header column names to cell values.
type TabularRow map[string]string

// WKTRecord is a literal point encoded as "POINT (<lon> <lat>)".
type WKTRecord struct {
	WKT         string `json:"wkt"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Country     string `json:"country,omitempty"`
	State       string `json:"state,omitempty"`
}
