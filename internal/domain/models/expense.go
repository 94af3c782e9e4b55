// internal/domain/models/expense.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Expense categories.
var ExpenseCategories = []string{
	"fournitures",
	"deplacement",
	"logiciel",
	"materiel",
	"sous_traitance",
	"autre",
}

// Expense is money spent by the business.
type Expense struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Category string             `bson:"category" json:"category"`
	Label    string             `bson:"label" json:"label"`

	AmountCents int64     `bson:"amount_cents" json:"amount_cents"`
	Date        time.Time `bson:"date" json:"date"`

	// ReceiptNote is a free-text reference to the supporting receipt
	// (invoice number, drive link). File storage is out of scope.
	ReceiptNote string `bson:"receipt_note,omitempty" json:"receipt_note,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
