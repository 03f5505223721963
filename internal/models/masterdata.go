package models

// Masterdata vocabulary types used by the query engine.
const (
	ReadPointType = "urn:epcglobal:epcis:vtype:ReadPoint"
	LocationType  = "urn:epcglobal:epcis:vtype:BusinessLocation"
)

// MasterData is the current version of a vocabulary element.
type MasterData struct {
	Type       string                `json:"type" yaml:"type"`
	ID         string                `json:"id" yaml:"id"`
	Attributes []MasterDataAttribute `json:"attributes,omitempty" yaml:"attributes"`
	Children   []string              `json:"children,omitempty" yaml:"children"`
}

// MasterDataAttribute is a single attribute of a vocabulary element.
type MasterDataAttribute struct {
	ID    string `json:"id" yaml:"id"`
	Value string `json:"value" yaml:"value"`
}

// Attribute returns the attributes with the given id.
func (md MasterData) Attribute(id string) (attrs []MasterDataAttribute) {
	for _, a := range md.Attributes {
		if a.ID == id {
			attrs = append(attrs, a)
		}
	}
	return
}
