package entity

import "time"

// Customer cliente de la empresa; ExternalCustomerID correlaciona con la tienda externa.
type Customer struct {
	ID                 string
	CompanyID          string
	Name               string
	Email              string
	Phone              string
	ExternalCustomerID string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
