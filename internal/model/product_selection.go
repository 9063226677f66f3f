package model

import "time"

// ProductSelection is the platform-side grouping a product is attached to.
type ProductSelection struct {
	ID             string    `json:"id"`
	Key            string    `json:"key"`
	Version        int       `json:"version"`
	ProductCount   int       `json:"product_count"`
	LastModifiedAt time.Time `json:"last_modified_at"`
}
