// Package auth protects the MCP endpoint with bearer tokens.
//
// # Tokens
//
// Tokens are HS256 JWTs signed with the configured auth.jwt_secret. Each token
// carries the issuer "miro-mcp-server", a subject naming the client, and an expiry:
//
//	verifier := auth.NewJWTVerifier(secret)
//	token, err := verifier.Generate("claude-desktop", 30*24*time.Hour)
//	subject, err := verifier.Verify(token)
//
// Tokens are minted by the "miro-mcp token" command. There is no revocation list;
// rotate the secret to invalidate every outstanding token.
//
// # HTTP
//
// BearerMiddleware wraps a handler and answers 401 for requests without a valid
// Authorization: Bearer header. The verified subject is available to handlers
// through SubjectFromContext and is attached to tool call logs.
//
// When no secret is configured the middleware is a pass-through and the endpoint
// is open. This is the default, matching deployments that sit behind a private
// network such as a tailnet.
package auth
