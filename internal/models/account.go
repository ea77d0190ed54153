package models

// Credentials is the four-part, provider-specific credential tuple of one account.
// Twitter reads it as app key, app secret, access token and access secret;
// LinkedIn as client id, client secret, access token and refresh token.
type Credentials struct {
	AppKey       string `json:"-"`
	AppSecret    string `json:"-"`
	AccessToken  string `json:"-"`
	AccessSecret string `json:"-"`
}

// IsComplete returns true when every part is present
func (c Credentials) IsComplete() bool {
	return c.AppKey != "" && c.AppSecret != "" && c.AccessToken != "" && c.AccessSecret != ""
}

// Account is one delivery target, numbered from 1 in load order
type Account struct {
	ID          int
	Credentials Credentials
	// Fallback marks the single account built from the default credential set
	Fallback bool
}

// MaskedKey returns the app key with everything but the last four characters hidden
func (a Account) MaskedKey() string {
	key := a.Credentials.AppKey
	if key == "" {
		return "(none)"
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
