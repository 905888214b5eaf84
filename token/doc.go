// Package token extracts claims from JWT-shaped bearer tokens for client-side
// expiry bookkeeping.
//
// # Design
//
// [Decode] splits the raw token, base64url-decodes the payload segment, and
// JSON-parses it via the jwt/v5 unverified parser. [Inspector] layers the
// expiry-buffer policy and an injectable clock on top.
//
// # What this package must NOT do
//
//   - Verify signatures. The issuing server remains authoritative for trust;
//     a decoded claim set proves nothing about authenticity.
//   - Panic on garbage input. Any malformed token decodes to an error and is
//     treated as expired by the inspector.
package token
