package vault

// Token helpers over the generic secret operations. Mirrors the shape the
// session layer needs: save a pair, refresh just the access half, read
// either, clear both.

// SaveTokens stores the token pair. Empty strings are skipped so a refresh
// response that only carries an access token does not wipe the refresh
// token. Returns the first store failure, if any; the caller decides
// whether a failed write degrades the session.
func (v *Vault) SaveTokens(access, refresh string) error {
	var firstErr error
	if access != "" {
		if err := v.Set(KeyAccessToken, []byte(access)); err != nil {
			firstErr = err
		}
	}
	if refresh != "" {
		if err := v.Set(KeyRefreshToken, []byte(refresh)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// UpdateAccess overwrites only the access token, used after a silent
// refresh.
func (v *Vault) UpdateAccess(access string) error {
	return v.Set(KeyAccessToken, []byte(access))
}

// AccessToken returns the stored access token, or "" when absent.
func (v *Vault) AccessToken() string {
	return string(v.Get(KeyAccessToken))
}

// RefreshToken returns the stored refresh token, or "" when absent.
func (v *Vault) RefreshToken() string {
	return string(v.Get(KeyRefreshToken))
}

// HasSession reports whether either token is present. This is the whole
// bootstrap route decision: local state only, no network.
func (v *Vault) HasSession() bool {
	return v.AccessToken() != "" || v.RefreshToken() != ""
}

// ClearTokens removes both tokens. Idempotent.
func (v *Vault) ClearTokens() {
	v.Delete(KeyAccessToken)
	v.Delete(KeyRefreshToken)
}
