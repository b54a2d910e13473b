package models

import "time"

// Vehicle is a car in the rental fleet.
type Vehicle struct {
	ID           string    `bson:"id" json:"id"`
	Make         string    `bson:"make" json:"make"`
	Model        string    `bson:"model" json:"model"`
	Year         int       `bson:"year,omitempty" json:"year,omitempty"`
	Registration string    `bson:"registration" json:"registration"`
	Colour       string    `bson:"colour,omitempty" json:"colour,omitempty"`
	VIN          string    `bson:"vin,omitempty" json:"vin,omitempty"`
	FuelType     string    `bson:"fuel_type,omitempty" json:"fuel_type,omitempty"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}
