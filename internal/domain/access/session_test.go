package access_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/entitlements-api/internal/domain/access"
	"github.com/jhoicas/entitlements-api/internal/domain/entity"
)

func TestSession_CicloDeVida(t *testing.T) {
	s := access.NewSession()
	assert.False(t, s.State().Loaded)

	u := userWith(entity.RoleSales, access.CapSalesCreate)
	s.Load(true, u)
	st := s.State()
	require.True(t, st.Loaded)
	require.True(t, st.Authenticated)
	require.NotNil(t, st.User)
	assert.Equal(t, entity.RoleSales, st.User.Role)

	s.Clear()
	st = s.State()
	assert.True(t, st.Loaded)
	assert.False(t, st.Authenticated)
	assert.Nil(t, st.User)

	s.Reset()
	assert.False(t, s.State().Loaded)
}

func TestSession_EstadoEsCopia(t *testing.T) {
	u := userWith(entity.RoleSales, access.CapSalesCreate)
	s := access.NewLoadedSession(u)

	u.Role = entity.RoleAdmin
	u.Capabilities[0] = "mutada"
	st := s.State()
	assert.Equal(t, entity.RoleSales, st.User.Role)
	assert.Equal(t, access.CapSalesCreate, st.User.Capabilities[0])

	st.User.Role = entity.RoleAdmin
	assert.Equal(t, entity.RoleSales, s.State().User.Role)
}
