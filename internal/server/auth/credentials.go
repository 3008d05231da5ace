package auth

// Credentials is what a caller presents: either an access token or a login
// with its password. A token takes precedence when both are set.
type Credentials struct {
	Login       string
	Password    string
	AccessToken string
}

const (
	methodToken    = "token"
	methodPassword = "password"
	methodNone     = "none"
)

func (c Credentials) method() string {
	switch {
	case c.AccessToken != "":
		return methodToken
	case c.Login != "":
		return methodPassword
	default:
		return methodNone
	}
}
