package message

import (
	"bytes"
	"encoding/json"
)

// Message is a product change notification.
type Message struct {
	NotificationType  string             `json:"notificationType,omitempty"`
	Type              string             `json:"type,omitempty"`
	Version           int                `json:"version,omitempty"`
	Resource          Resource           `json:"resource"`
	ProductProjection *ProductProjection `json:"productProjection,omitempty"`
}

type Resource struct {
	TypeID string `json:"typeId,omitempty"`
	ID     string `json:"id"`
}

type ProductProjection struct {
	ID            string   `json:"id,omitempty"`
	Key           string   `json:"key,omitempty"`
	MasterVariant *Variant `json:"masterVariant,omitempty"`
}

type Variant struct {
	ID         int         `json:"id,omitempty"`
	SKU        string      `json:"sku,omitempty"`
	Attributes []Attribute `json:"attributes,omitempty"`
}

// Attribute is a name/value pair of a product variant. Value keeps the raw
// JSON since attribute types vary per product type.
type Attribute struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// Attributes returns the master variant attributes. ok is false when the
// message, projection, variant or attribute list is absent.
func (m *Message) Attributes() ([]Attribute, bool) {
	if m == nil || m.ProductProjection == nil || m.ProductProjection.MasterVariant == nil {
		return nil, false
	}
	attrs := m.ProductProjection.MasterVariant.Attributes
	if attrs == nil {
		return nil, false
	}
	return attrs, true
}

// ProductID returns the id of the changed product, or "" for a nil message.
func (m *Message) ProductID() string {
	if m == nil {
		return ""
	}
	return m.Resource.ID
}

// FindAttribute returns the first attribute named exactly name.
func FindAttribute(attrs []Attribute, name string) (Attribute, bool) {
	for _, attr := range attrs {
		if attr.Name == name {
			return attr, true
		}
	}
	return Attribute{}, false
}

// Text renders the attribute value for use in a key. Strings are used as-is,
// enum values use their key and anything else its compact JSON form.
func (a Attribute) Text() string {
	raw := bytes.TrimSpace(a.Value)
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var enum struct {
		Key *string `json:"key"`
	}
	if err := json.Unmarshal(raw, &enum); err == nil && enum.Key != nil {
		return *enum.Key
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
