package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RegionEditUpdate      = "update"
	RegionEditImageAdd    = "image_add"
	RegionEditImageUpload = "image_upload" // stored but not attached to the region
	RegionEditImageRemove = "image_remove"
)

// RegionEdit is one entry of a region's admin edit history.
type RegionEdit struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RegionCode string             `bson:"region_code" json:"region_code"`
	AdminID    string             `bson:"admin_id" json:"admin_id"`
	Action     string             `bson:"action" json:"action"`
	Fields     []string           `bson:"fields,omitempty" json:"fields,omitempty"`
	ImageURL   string             `bson:"image_url,omitempty" json:"image_url,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}
