package entity

import "time"

// Classification es la lista regulatoria de una materia prima.
// COMMON indica sustancia no controlada; las demás corresponden a las listas de control especial.
type Classification string

const (
	ClassificationCommon Classification = "COMMON"
	ClassificationA1     Classification = "A1" // estupefacientes
	ClassificationA2     Classification = "A2"
	ClassificationA3     Classification = "A3" // psicotrópicos
	ClassificationB1     Classification = "B1"
	ClassificationB2     Classification = "B2"
	ClassificationC1     Classification = "C1" // otras sustancias de control especial
	ClassificationC2     Classification = "C2"
	ClassificationC3     Classification = "C3"
	ClassificationC4     Classification = "C4"
	ClassificationC5     Classification = "C5"
)

// Valid indica si la clasificación es una de las conocidas.
func (c Classification) Valid() bool {
	switch c {
	case ClassificationCommon,
		ClassificationA1, ClassificationA2, ClassificationA3,
		ClassificationB1, ClassificationB2,
		ClassificationC1, ClassificationC2, ClassificationC3, ClassificationC4, ClassificationC5:
		return true
	}
	return false
}

// RawMaterial representa una materia prima del catálogo del establecimiento (solo lectura para el núcleo).
type RawMaterial struct {
	ID              string
	EstablishmentID string
	Code            string
	Name            string
	Unit            string // g, mg, mL, UI...
	Classification  Classification
	SubstanceCode   string // código de la sustancia en la lista oficial (DCB)
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsControlled indica si la materia prima pertenece a alguna lista de control especial.
func (r *RawMaterial) IsControlled() bool {
	return r.Classification != "" && r.Classification != ClassificationCommon
}
