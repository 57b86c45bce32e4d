package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims incluye los claims estándar JWT más los campos propios de la aplicación.
// EstablishmentID delimita el tenant; Role permite al middleware decidir sin consultar la DB.
type Claims struct {
	jwt.RegisteredClaims
	UserID          string `json:"user_id"`
	EstablishmentID string `json:"establishment_id"`
	Role            string `json:"role"` // "admin" | "pharmacist" | "operator"
}

// Roles reconocidos por el motor de inventario.
const (
	RoleAdmin      = "admin"
	RolePharmacist = "pharmacist" // farmacéutico responsable: decisiones de calidad y balances
	RoleOperator   = "operator"
)

// Generate genera un token JWT firmado que incluye userID, establishmentID y role.
// Los tokens los emite el servicio de autenticación; aquí se usa en pruebas y herramientas.
func Generate(secret, userID, establishmentID, role, issuer string, expMinutes int) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt: secret vacío")
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expMinutes) * time.Minute)),
		},
		UserID:          userID,
		EstablishmentID: establishmentID,
		Role:            role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Parse valida el token y devuelve userID, establishmentID y role.
// Retorna error si el token es inválido, expirado o tiene firma incorrecta.
func Parse(secret, tokenString string) (userID, establishmentID, role string, err error) {
	if secret == "" {
		return "", "", "", fmt.Errorf("jwt: secret vacío")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de firma inesperado: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", "", "", err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", "", "", fmt.Errorf("claims inválidos")
	}
	if claims.EstablishmentID == "" {
		return "", "", "", fmt.Errorf("claims inválidos: establishment_id vacío")
	}
	return claims.UserID, claims.EstablishmentID, claims.Role, nil
}
