package common

// AuthorizationHeaderName carries the opaque bearer credential. The endpoint
// being called decides whether it is read as a session or a developer token.
const AuthorizationHeaderName = "Authorization"

// TokenBytes is the number of random bytes behind every issued token.
const TokenBytes = 32
