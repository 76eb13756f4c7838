// Package secret provides the process-local MAC secret and HMAC primitives.
//
// It is the single source of truth for keyed signing behavior: the same secret
// protects stored credential hashes (layered format signature segment) and
// outbound realtime event frames.
//
// Design goals:
// - Default dev mode: a fixed fallback key so local runs need no configuration.
// - Production-enforced mode: SCB_SECRET_KEY required (>= 32 bytes), no fallback.
// - Stable 64-char hex output for storage and constant-time comparison.
//
// Environment:
// - SCB_SECRET_KEY: when set, replaces the dev fallback key.
// Policy:
//   - If RequireSecret=true, app startup MUST call ProcessKeyRequire (>= 32 bytes)
//     and refuse to run on failure. Secrets are process-local and never rotated online.
package secret
