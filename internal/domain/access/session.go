package access

import (
	"sync"

	"github.com/jhoicas/entitlements-api/internal/domain/entity"
)

// Session estado de autenticación del usuario actual, entregado por el componente
// de identidad externo. Se crea sin cargar (NewSession), se completa con Load y se
// limpia con Clear al cerrar sesión. Se pasa por referencia al Guard.
type Session struct {
	mu            sync.RWMutex
	loaded        bool
	authenticated bool
	user          *entity.User
}

// SessionState copia inmutable del estado de la sesión.
type SessionState struct {
	Loaded        bool
	Authenticated bool
	User          *entity.User // nil = perfil no disponible
}

// NewSession crea una sesión aún no cargada.
func NewSession() *Session {
	return &Session{}
}

// NewLoadedSession atajo para una sesión autenticada con su usuario.
func NewLoadedSession(user *entity.User) *Session {
	s := NewSession()
	s.Load(true, user)
	return s
}

// Load marca la sesión como cargada con el resultado de la autenticación.
func (s *Session) Load(authenticated bool, user *entity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
	s.authenticated = authenticated
	s.user = copyUser(user)
}

// Clear cierra la sesión: queda cargada pero sin autenticar.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
	s.authenticated = false
	s.user = nil
}

// Reset vuelve al estado inicial (sin cargar), p. ej. mientras se refresca el token.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = false
	s.authenticated = false
	s.user = nil
}

// State devuelve una copia del estado actual. Una sesión nil se considera sin cargar.
func (s *Session) State() SessionState {
	if s == nil {
		return SessionState{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionState{Loaded: s.loaded, Authenticated: s.authenticated, User: copyUser(s.user)}
}

func copyUser(u *entity.User) *entity.User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.Capabilities = append([]entity.Capability(nil), u.Capabilities...)
	return &cp
}
