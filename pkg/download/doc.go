// Package download fetches mod files into a local cache, verifies them and
// moves them into a destination directory.
//
// # Pipeline
//
// [Manager.Download] takes a list of [File] descriptors and runs each one
// through the states of [Outcome]:
//
//	Pending -> CacheHit -> Verified -> Moved
//	Pending -> Fetching -> Verified -> Moved
//	any of the above   -> Failed
//
// Cache hits are verified before any network traffic. Misses are fetched by
// a bounded pool of workers (3 by default) into the [Cache] directory, and
// the call waits for the whole wave before verifying the new files against
// their sha1 digest. Only then are files moved into the destination.
//
// # Failure Policy
//
// A digest mismatch, or a file without a sha1 digest, aborts the batch with
// an [*IntegrityError] and nothing is moved. A transfer that fails, or a
// destination path that already exists, only drops that file from the
// [ResultMap]; the reason is kept on its [Outcome].
//
// # Progress
//
// A [ProgressFunc] receives the list of scheduled [Task]s and returns a
// [Reporter] that workers update concurrently. The reporter is closed when
// the fetch phase ends, whether or not transfers failed.
package download
