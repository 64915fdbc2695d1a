package model

import "time"

// Repository is a remote repository as listed for its owner.
type Repository struct {
	FullName string    `json:"full_name"` // owner/name
	Fork     bool      `json:"fork"`
	PushedAt time.Time `json:"pushed_at"`
}

type EntryType string

const (
	EntryTypeFile EntryType = "file"
	EntryTypeDir  EntryType = "dir"
)

// RepositoryEntry is one item of a directory listing.
type RepositoryEntry struct {
	Path        string    `json:"path"`
	Type        EntryType `json:"type"`
	DownloadURL string    `json:"download_url"`
}

// RepositoryFile lives only for the duration of one repository's aggregation.
type RepositoryFile struct {
	Path        string
	DownloadURL string
	IsSource    bool
}

type RepositorySummary struct {
	Repository     string         `json:"repository"`
	TotalLines     int            `json:"total_lines"`
	FilesProcessed int            `json:"files_processed"`
	FilesFailed    int            `json:"files_failed"`
	DirsFailed     int            `json:"dirs_failed"` // Listings that failed; their files are missing from the totals
	Languages      map[string]int `json:"languages,omitempty"` // Lines per detected language
}

func (s RepositorySummary) Clone() RepositorySummary {
	if s.Languages != nil {
		langs := make(map[string]int, len(s.Languages))
		for k, v := range s.Languages {
			langs[k] = v
		}
		s.Languages = langs
	}
	return s
}
