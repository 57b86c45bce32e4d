package textnorm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/magistral-api/pkg/textnorm"
)

func TestName(t *testing.T) {
	cases := map[string]string{
		"  José  da   Conceição ": "JOSE DA CONCEICAO",
		"María Peña":              "MARIA PENA",
		"ANA":                     "ANA",
		"":                        "",
	}
	for in, want := range cases {
		assert.Equal(t, want, textnorm.Name(in), in)
	}
}

func TestCode(t *testing.T) {
	assert.Equal(t, "CRM", textnorm.Code(" crm "))
	assert.Equal(t, "SP", textnorm.Code("sp"))
}
