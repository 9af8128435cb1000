// Package integrations provides the shared HTTP client for registry APIs.
//
// # Overview
//
// [Client] is the transport every registry integration builds on. Registry
// specific clients live in subpackages:
//
//   - [modrinth]: Modrinth v2 API (projects, versions, file hashes, search)
//
// # Client Behaviour
//
// Every request made through [Client.Get] or [Client.GetRaw]:
//
//   - carries a descriptive User-Agent (name/version/homepage)
//   - waits while the registry's rate limit window is exhausted, sleeping in
//     one-second steps reported to an [httputil.WaitObserver]
//   - refreshes the rate limit state from the x-ratelimit-* headers
//   - retries connection failures five times before failing with
//     [*ConnectionError]
//   - repeats the request after a cooldown when the registry answers 429
//   - surfaces other non-2xx answers as [*StatusError]
//
// Responses can be cached with [Client.Cached], backed by any [cache.Cache].
//
// # Adding a New Registry
//
//  1. Create a subpackage: pkg/integrations/<registry>/
//  2. Define record structs matching the API schema
//  3. Embed a [*Client] created with [NewClient]
//
// [modrinth]: github.com/matzehuels/modman/pkg/integrations/modrinth
package integrations
