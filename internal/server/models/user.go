package models

// User is a row of core_users. HashedPassword is derived from Salt and the
// plaintext password; the plaintext is never stored.
type User struct {
	ID             string
	Login          string
	Salt           string
	HashedPassword string
	Name           string
	Email          string
	Avatar         string
	CanLogin       bool
	IsAdmin        bool
	Builtin        bool
}

// SessionUser returns the public attributes of u, as attached to a session.
func (u *User) SessionUser() SessionUser {
	return SessionUser{
		ID:       u.ID,
		Name:     u.Name,
		Login:    u.Login,
		Avatar:   u.Avatar,
		Email:    u.Email,
		CanLogin: u.CanLogin,
		IsAdmin:  u.IsAdmin,
		Builtin:  u.Builtin,
	}
}
