// internal/domain/models/sale.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Sale statuses.
const (
	SaleBrouillon = "brouillon"
	SaleFacturee  = "facturee"
	SalePayee     = "payee"
)

// Sale is an invoice line or one-off sale recorded against a client.
type Sale struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ClientID  primitive.ObjectID  `bson:"client_id" json:"client_id"`
	ProjectID *primitive.ObjectID `bson:"project_id,omitempty" json:"project_id,omitempty"`
	Label     string              `bson:"label" json:"label"`

	AmountCents int64     `bson:"amount_cents" json:"amount_cents"`
	Date        time.Time `bson:"date" json:"date"`
	Status      string    `bson:"status" json:"status"` // brouillon | facturee | payee

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
