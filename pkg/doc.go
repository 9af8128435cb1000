// Package pkg provides the libraries behind modman, a downloader for
// Minecraft mods published on Modrinth.
//
// # Overview
//
// modman looks up projects and versions in the Modrinth registry and makes
// their files available in a local directory. Every file passes through a
// download cache and is checked against its published sha1 digest before
// it is handed out. The pkg directory is organized into three areas:
//
//  1. [integrations] - Registry access (rate limiting, retries, response cache)
//  2. [download] - Cache, concurrent transfers, verification and relocation
//  3. Support packages: [cache], [integrity], [httputil], [observability],
//     [errors] and [buildinfo]
//
// # Architecture
//
// The typical data flow through modman:
//
//	Modrinth API
//	     ↓
//	[integrations/modrinth] (projects, versions, file descriptors)
//	     ↓
//	[download] Manager (cache lookup → fetch → verify → move)
//	     ↓
//	destination directory
//
// # Quick Start
//
// Download the primary file of a version:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/modman/pkg/download"
//	    "github.com/matzehuels/modman/pkg/integrations"
//	    "github.com/matzehuels/modman/pkg/integrations/modrinth"
//	)
//
//	// 1. Fetch the version
//	client := modrinth.NewClient(integrations.Options{})
//	v, _ := client.FetchVersion(ctx, "yaoBL9D9", false)
//
//	// 2. Pick its primary file
//	f, _ := v.PrimaryFile()
//
//	// 3. Download and verify
//	mgr, _ := download.NewManager(download.Options{})
//	paths, _ := mgr.DownloadFiles(ctx, []download.File{f.Descriptor()}, "mods")
//
// # Testing
//
// Run tests:
//
//	go test ./...                        # All tests
//	go test ./pkg/download/...           # Specific package
//	go test -tags integration ./pkg/...  # Include redis and mongo tests
//
// [integrations]: https://pkg.go.dev/github.com/matzehuels/modman/pkg/integrations
// [integrations/modrinth]: https://pkg.go.dev/github.com/matzehuels/modman/pkg/integrations/modrinth
// [download]: https://pkg.go.dev/github.com/matzehuels/modman/pkg/download
// [cache]: https://pkg.go.dev/github.com/matzehuels/modman/pkg/cache
// [integrity]: https://pkg.go.dev/github.com/matzehuels/modman/pkg/integrity
// [httputil]: https://pkg.go.dev/github.com/matzehuels/modman/pkg/httputil
// [observability]: https://pkg.go.dev/github.com/matzehuels/modman/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/modman/pkg/errors
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/modman/pkg/buildinfo
package pkg
