package model

// DirectoryEntry is a single item returned by a folder listing.
type DirectoryEntry struct {
	Name      string `json:"name"`
	PathLower string `json:"path_lower"`
	IsFile    bool   `json:"is_file"`
	IsFolder  bool   `json:"is_folder"`
}

// ListingPage is one page of a paginated folder listing.
type ListingPage struct {
	Cursor  string           `json:"cursor,omitempty"`
	Entries []DirectoryEntry `json:"entries"`
	HasMore bool             `json:"has_more"`
}
