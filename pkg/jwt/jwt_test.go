package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Movimientos-api/pkg/jwt"
)

func TestGenerateParse_IdaYVuelta(t *testing.T) {
	tok, err := jwt.Generate("secreto", "movimientos", jwt.Identity{UserID: "u1", Name: "Ana", Role: "approver"}, 5)
	require.NoError(t, err)

	id, err := jwt.Parse("secreto", "movimientos", tok)
	require.NoError(t, err)
	assert.Equal(t, jwt.Identity{UserID: "u1", Name: "Ana", Role: "approver"}, id)
}

func TestParse_FirmaIncorrecta(t *testing.T) {
	tok, err := jwt.Generate("secreto", "movimientos", jwt.Identity{UserID: "u1", Role: "maker"}, 5)
	require.NoError(t, err)

	_, err = jwt.Parse("otro", "movimientos", tok)
	assert.Error(t, err)
}

func TestParse_EmisorDistinto(t *testing.T) {
	tok, err := jwt.Generate("secreto", "otro-emisor", jwt.Identity{UserID: "u1", Role: "maker"}, 5)
	require.NoError(t, err)

	_, err = jwt.Parse("secreto", "movimientos", tok)
	assert.Error(t, err)
}

func TestParse_Expirado(t *testing.T) {
	tok, err := jwt.Generate("secreto", "movimientos", jwt.Identity{UserID: "u1", Role: "maker"}, -1)
	require.NoError(t, err)

	_, err = jwt.Parse("secreto", "movimientos", tok)
	assert.Error(t, err)
}

func TestGenerate_SecretVacio(t *testing.T) {
	_, err := jwt.Generate("", "movimientos", jwt.Identity{UserID: "u1"}, 5)
	assert.Error(t, err)
}
