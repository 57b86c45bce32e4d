package entity

// Employee identidad mínima de un colaborador para los sellos de auditoría.
type Employee struct {
	ID              string
	EstablishmentID string
	Name            string
	Active          bool
}
