package domain

import "errors"

// Auth is the closed set of ways to authenticate against the source.
// It is resolved once at startup; downstream code receives an HTTP client,
// never an Auth value.
type Auth interface {
	isAuth()
	Validate() error
}

// TokenAuth authenticates with a personal access token.
type TokenAuth struct {
	Token string
}

func (TokenAuth) isAuth() {}

// Validate checks the token is present.
func (a TokenAuth) Validate() error {
	if a.Token == "" {
		return errors.Join(ErrAuthRequired, errors.New("token is empty"))
	}
	return nil
}

// AppAuth authenticates as a GitHub App installation.
type AppAuth struct {
	AppID          int64
	PrivateKey     []byte
	InstallationID int64
}

func (AppAuth) isAuth() {}

// Validate checks every credential part is present.
func (a AppAuth) Validate() error {
	var errs []error
	if a.AppID == 0 {
		errs = append(errs, errors.New("app id is empty"))
	}
	if len(a.PrivateKey) == 0 {
		errs = append(errs, errors.New("private key is empty"))
	}
	if a.InstallationID == 0 {
		errs = append(errs, errors.New("installation id is empty"))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrAuthRequired}, errs...)...)
	}
	return nil
}
