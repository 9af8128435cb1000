package modrinth

import (
	"fmt"
	"strings"
	"time"

	"github.com/matzehuels/modman/pkg/download"
)

// Project is a mod, modpack, resource pack or shader hosted on Modrinth.
type Project struct {
	ID                   string        `json:"id"`
	Slug                 string        `json:"slug"`
	Title                string        `json:"title"`
	Description          string        `json:"description"`
	Body                 string        `json:"body,omitempty"`
	ProjectType          string        `json:"project_type"` // mod, modpack, resourcepack, shader
	Categories           []string      `json:"categories"`
	AdditionalCategories []string      `json:"additional_categories,omitempty"`
	ClientSide           string        `json:"client_side"` // required, optional, unsupported
	ServerSide           string        `json:"server_side"`
	Status               string        `json:"status"`
	Team                 string        `json:"team"`
	Downloads            int           `json:"downloads"`
	Followers            int           `json:"followers"`
	License              License       `json:"license"`
	Versions             []string      `json:"versions"`
	GameVersions         []string      `json:"game_versions"`
	Loaders              []string      `json:"loaders,omitempty"`
	IssuesURL            string        `json:"issues_url,omitempty"`
	SourceURL            string        `json:"source_url,omitempty"`
	WikiURL              string        `json:"wiki_url,omitempty"`
	DiscordURL           string        `json:"discord_url,omitempty"`
	IconURL              string        `json:"icon_url,omitempty"`
	DonationURLs         []DonationURL `json:"donation_urls,omitempty"`
	Published            time.Time     `json:"published"`
	Updated              time.Time     `json:"updated"`
}

// License is the license of a project.
type License struct {
	ID   string `json:"id"` // SPDX identifier
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// DonationURL is a donation link of a project.
type DonationURL struct {
	ID       string `json:"id"`
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

// Related reports whether target refers to this project by ID
// (case-insensitive) or by title or slug (case-folded).
func (p *Project) Related(target string) bool {
	t := strings.TrimSpace(target)
	return strings.EqualFold(t, strings.TrimSpace(p.ID)) ||
		strings.EqualFold(t, strings.TrimSpace(p.Title)) ||
		strings.EqualFold(t, strings.TrimSpace(p.Slug))
}

func (p *Project) validate() error {
	if p.ID == "" {
		return fmt.Errorf("project: missing id")
	}
	if n := len(p.Slug); n < 3 || n > 64 {
		return fmt.Errorf("project %s: slug %q must be 3-64 characters", p.ID, p.Slug)
	}
	return nil
}

// Version is a release of a project.
type Version struct {
	ID            string              `json:"id"`
	ProjectID     string              `json:"project_id"`
	AuthorID      string              `json:"author_id"`
	Name          string              `json:"name"`
	VersionNumber string              `json:"version_number"`
	VersionType   string              `json:"version_type"` // release, beta, alpha
	Status        string              `json:"status"`
	Changelog     string              `json:"changelog,omitempty"`
	Featured      bool                `json:"featured"`
	Downloads     int                 `json:"downloads"`
	Loaders       []string            `json:"loaders"`
	GameVersions  []string            `json:"game_versions"`
	Dependencies  []VersionDependency `json:"dependencies,omitempty"`
	Files         []VersionFile       `json:"files"`
	DatePublished time.Time           `json:"date_published"`
}

// Dependency types.
const (
	DependencyRequired     = "required"
	DependencyOptional     = "optional"
	DependencyIncompatible = "incompatible"
	DependencyEmbedded     = "embedded"
)

// VersionDependency is a dependency of a version on another project or version.
type VersionDependency struct {
	VersionID      string `json:"version_id,omitempty"`
	ProjectID      string `json:"project_id,omitempty"`
	FileName       string `json:"file_name,omitempty"`
	DependencyType string `json:"dependency_type"`
}

// PrimaryFile returns the primary file of the version.
func (v *Version) PrimaryFile() (VersionFile, bool) {
	return PrimaryFile(v.Files...)
}

func (v *Version) validate() error {
	if v.ID == "" {
		return fmt.Errorf("version: missing id")
	}
	if v.ProjectID == "" {
		return fmt.Errorf("version %s: missing project_id", v.ID)
	}
	for i, f := range v.Files {
		if f.Filename == "" || f.URL == "" {
			return fmt.Errorf("version %s: file %d missing filename or url", v.ID, i)
		}
	}
	return nil
}

// FileHashes holds the digests Modrinth publishes for a file.
type FileHashes struct {
	SHA1   string `json:"sha1,omitempty"`
	SHA256 string `json:"sha256,omitempty"`
	SHA512 string `json:"sha512,omitempty"`
}

// VersionFile is one downloadable file of a version.
type VersionFile struct {
	Filename string     `json:"filename"`
	URL      string     `json:"url"`
	Size     int64      `json:"size"`
	Primary  bool       `json:"primary"`
	Hashes   FileHashes `json:"hashes"`
}

// Descriptor converts the file into a download descriptor.
func (f VersionFile) Descriptor() download.File {
	return download.File{
		Filename: f.Filename,
		URL:      f.URL,
		Size:     f.Size,
		Primary:  f.Primary,
		Hashes: download.Hashes{
			SHA1:   strings.ToLower(f.Hashes.SHA1),
			SHA256: strings.ToLower(f.Hashes.SHA256),
			SHA512: strings.ToLower(f.Hashes.SHA512),
		},
	}
}

// PrimaryFile returns the first file flagged primary, or the first file when
// none is. ok is false when files is empty.
func PrimaryFile(files ...VersionFile) (file VersionFile, ok bool) {
	if len(files) == 0 {
		return VersionFile{}, false
	}
	for _, f := range files {
		if f.Primary {
			return f, true
		}
	}
	return files[0], true
}

// Search indexes accepted by [SearchOptions].
const (
	IndexRelevance = "relevance"
	IndexDownloads = "downloads"
	IndexFollows   = "follows"
	IndexNewest    = "newest"
	IndexUpdated   = "updated"
)

// SearchResultPage is one page of /search results.
type SearchResultPage struct {
	Hits      []SearchHit `json:"hits"`
	Offset    int         `json:"offset"`
	Limit     int         `json:"limit"`
	TotalHits int         `json:"total_hits"`
}

// SearchHit is a condensed project as returned by /search.
type SearchHit struct {
	ProjectID     string    `json:"project_id"`
	Slug          string    `json:"slug"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	ProjectType   string    `json:"project_type"`
	Author        string    `json:"author"`
	Categories    []string  `json:"categories"`
	Versions      []string  `json:"versions"`
	LatestVersion string    `json:"latest_version,omitempty"`
	Downloads     int       `json:"downloads"`
	Follows       int       `json:"follows"`
	ClientSide    string    `json:"client_side"`
	ServerSide    string    `json:"server_side"`
	License       string    `json:"license"`
	DateModified  time.Time `json:"date_modified"`
}

func (h *SearchHit) validate() error {
	if h.ProjectID == "" {
		return fmt.Errorf("search hit: missing project_id")
	}
	return nil
}
