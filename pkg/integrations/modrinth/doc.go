// Package modrinth provides a client for the Modrinth v2 API.
//
// # Overview
//
// The client fetches project and version records in batches, lists the
// versions of a project, resolves a file digest back to its version and
// searches the project index:
//
//	client := modrinth.NewClient(integrations.Options{Cache: backend, CacheTTL: time.Hour})
//	projects, err := client.FetchProjects(ctx, []string{"sodium", "lithium"}, false)
//	v, err := client.FetchVersionByFileHash(ctx, sha1hex, integrity.SHA1, false)
//
// Lookups of unknown ids or hashes are not errors: the record is simply
// absent (omitted from a batch, or nil for a single lookup).
//
// # Downloading
//
// [VersionFile.Descriptor] converts a version file into a [download.File]
// for the download manager; [PrimaryFile] picks the file to install.
//
// [download.File]: github.com/matzehuels/modman/pkg/download.File
package modrinth
