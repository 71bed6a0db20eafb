// Package authcore is an embeddable authentication engine: password
// registration with email verification, login with brute-force lockout,
// access/refresh JWT pairs with single-use rotation and server-side
// revocation, and federated login with consent-gated account linking.
//
// The engine owns credential and token lifecycle only. User persistence
// sits behind the UserProvider interface, outbound mail behind Mailer,
// and HTTP transport is left entirely to the host application. Session,
// lockout, and verification state live in a shared key-value store,
// either Redis or an in-process map.
//
// Construction goes through the Builder:
//
//	cfg := authcore.DefaultConfig()
//	cfg.Token.AccessSecret = accessKey
//	cfg.Token.RefreshSecret = refreshKey
//
//	engine, err := authcore.New().
//		WithConfig(cfg).
//		WithRedis(client).
//		WithUserProvider(provider).
//		Build()
//
// All Engine methods are safe for concurrent use. Expected failures are
// reported through the package sentinel errors (ErrInvalidCredentials,
// ErrAccountLocked, ErrUnauthorized, and so on); anything else is an
// infrastructure fault.
package authcore
