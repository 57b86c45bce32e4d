package entity

import "time"

// Supplier representa un proveedor de materias primas (solo lectura para el núcleo).
type Supplier struct {
	ID              string
	EstablishmentID string
	Name            string
	Document        string // CNPJ/NIT
	CreatedAt       time.Time
}
