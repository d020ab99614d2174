package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Platform describes a platform with its ROM count.
type Platform struct {
	ID        int64  `json:"id"`
	Slug      string `json:"slug"`
	FSSlug    string `json:"fs_slug"`
	Name      string `json:"name"`
	RomCount  int64  `json:"rom_count"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// Rom describes a catalog ROM as listed for the current user.
type Rom struct {
	ID             int64    `json:"id"`
	PlatformID     int64    `json:"platform_id"`
	PlatformSlug   string   `json:"platform_slug"`
	PlatformFSSlug string   `json:"platform_fs_slug"`
	PlatformName   string   `json:"platform_name"`
	Name           string   `json:"name"`
	Slug           string   `json:"slug"`
	FileName       string   `json:"file_name"`
	FileNameNoTags string   `json:"file_name_no_tags"`
	FileNameNoExt  string   `json:"file_name_no_ext"`
	FileExtension  string   `json:"file_extension"`
	FilePath       string   `json:"file_path"`
	FullPath       string   `json:"full_path"`
	FileSizeBytes  int64    `json:"file_size_bytes"`
	Multi          bool     `json:"multi"`
	Files          []string `json:"files"`
	Summary        string   `json:"summary,omitempty"`
	PathCoverSmall string   `json:"path_cover_s,omitempty"`
	PathCoverLarge string   `json:"path_cover_l,omitempty"`
	URLCover       string   `json:"url_cover,omitempty"`
	HasCover       bool     `json:"has_cover"`
	ResourcesPath  string   `json:"fs_resources_path"`
	IsMainSibling  bool     `json:"is_main_sibling"`
	SiblingCount   int64    `json:"sibling_count"`
	CreatedAt      string   `json:"created_at,omitempty"`
	UpdatedAt      string   `json:"updated_at,omitempty"`
}

// UserProps is the current user's state for a ROM.
type UserProps struct {
	ID              int64  `json:"id"`
	RomID           int64  `json:"rom_id"`
	UserID          int64  `json:"user_id"`
	NoteRawMarkdown string `json:"note_raw_markdown"`
	NoteIsPublic    bool   `json:"note_is_public"`
	IsMainSibling   bool   `json:"is_main_sibling"`
	UpdatedAt       string `json:"updated_at,omitempty"`
}

// Asset is a save, state, or screenshot owned by the current user.
type Asset struct {
	ID            int64  `json:"id"`
	Kind          string `json:"kind"`
	FileName      string `json:"file_name"`
	FilePath      string `json:"file_path"`
	FileSizeBytes int64  `json:"file_size_bytes"`
	CreatedAt     string `json:"created_at,omitempty"`
}

// DetailedRom is a ROM with the current user's props, assets, and siblings.
type DetailedRom struct {
	Rom
	Props       *UserProps `json:"rom_user,omitempty"`
	Siblings    []Rom      `json:"siblings"`
	Saves       []Asset    `json:"user_saves"`
	States      []Asset    `json:"user_states"`
	Screenshots []Asset    `json:"user_screenshots"`
}

// ListRomsQuery holds the GET /api/roms query parameters.
type ListRomsQuery struct {
	PlatformID int64  `form:"platform_id" qs:"platform_id,omitempty"`
	SearchTerm string `form:"search_term" qs:"search_term,omitempty"`
	OrderBy    string `form:"order_by" qs:"order_by,omitempty"`
	OrderDir   string `form:"order_dir" qs:"order_dir,omitempty"`
	Limit      int    `form:"limit" qs:"limit,omitempty"`
}

// UploadResponse reports which uploaded files were stored.
type UploadResponse struct {
	UploadedRoms []string `json:"uploaded_roms"`
	SkippedRoms  []string `json:"skipped_roms"`
}

// DeleteRequest lists ROMs to delete and which of them lose their files.
type DeleteRequest struct {
	Roms         []int64 `json:"roms"`
	DeleteFromFS []int64 `json:"delete_from_fs"`
}

// DeleteResult is the outcome for one id of a delete request.
type DeleteResult struct {
	ID      int64  `json:"id"`
	Deleted bool   `json:"deleted"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// DeleteResponse summarizes a delete request.
type DeleteResponse struct {
	Deleted int            `json:"deleted"`
	Results []DeleteResult `json:"results"`
}

// PropsRequest is a partial update of the current user's props.
type PropsRequest struct {
	NoteRawMarkdown *string `json:"note_raw_markdown,omitempty"`
	NoteIsPublic    *bool   `json:"note_is_public,omitempty"`
	IsMainSibling   *bool   `json:"is_main_sibling,omitempty"`
}

// HealthResponse answers GET /api/healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// APIError is the body of every error response.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrorEnvelope wraps APIError.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
