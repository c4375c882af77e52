package types

// TokenResponse is the JSON body returned by a registry token endpoint.
type TokenResponse struct {
	Token string `json:"token"`
}

// RegistryCredentials holds basic auth credentials.
type RegistryCredentials struct {
	Username string `json:"username"` // Registry username.
	Password string `json:"password"` // Registry token or password.
}
