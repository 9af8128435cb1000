package download

// Hashes holds the expected digests of a file as lowercase hex strings.
// Empty fields are unknown.
type Hashes struct {
	SHA1   string `json:"sha1,omitempty"`
	SHA256 string `json:"sha256,omitempty"`
	SHA512 string `json:"sha512,omitempty"`
}

// File describes one downloadable file. It is the unit the download pipeline
// operates on and the key of a [ResultMap], so it is a comparable value type.
//
// Filename is the cache identity: two files with the same Filename share a
// cache entry regardless of URL or content.
type File struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	Primary  bool   `json:"primary"`
	Hashes   Hashes `json:"hashes"`
}

// ResultMap maps each file that reached the Moved state to its final path.
type ResultMap map[File]string
