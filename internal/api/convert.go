package api

import (
	"time"

	"romshelf/internal/catalog"
	"romshelf/internal/mutation"
	"romshelf/internal/services"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// FromPlatform converts a catalog platform to its API representation.
func FromPlatform(p *catalog.Platform) Platform {
	if p == nil {
		return Platform{}
	}
	return Platform{
		ID:        p.ID,
		Slug:      p.Slug,
		FSSlug:    p.FSSlug,
		Name:      p.Name,
		RomCount:  p.RomCount,
		CreatedAt: formatTime(p.CreatedAt),
		UpdatedAt: formatTime(p.UpdatedAt),
	}
}

// FromPlatforms converts a slice of platforms. The result is never nil.
func FromPlatforms(platforms []*catalog.Platform) []Platform {
	out := make([]Platform, 0, len(platforms))
	for _, p := range platforms {
		out = append(out, FromPlatform(p))
	}
	return out
}

// FromRom converts a catalog ROM to its API representation.
func FromRom(rom *catalog.Rom) Rom {
	if rom == nil {
		return Rom{}
	}
	files := rom.Files
	if files == nil {
		files = []string{}
	}
	return Rom{
		ID:             rom.ID,
		PlatformID:     rom.PlatformID,
		PlatformSlug:   rom.PlatformSlug,
		PlatformFSSlug: rom.PlatformFSSlug,
		PlatformName:   rom.PlatformName,
		Name:           rom.Name,
		Slug:           rom.Slug,
		FileName:       rom.FileName,
		FileNameNoTags: rom.FileNameNoTags,
		FileNameNoExt:  rom.FileNameNoExt,
		FileExtension:  rom.FileExtension,
		FilePath:       rom.FilePath,
		FullPath:       rom.FullPath(),
		FileSizeBytes:  rom.FileSizeBytes,
		Multi:          rom.Multi,
		Files:          files,
		Summary:        rom.Summary,
		PathCoverSmall: rom.PathCoverS,
		PathCoverLarge: rom.PathCoverL,
		URLCover:       rom.URLCover,
		HasCover:       rom.HasCover(),
		ResourcesPath:  rom.ResourcesPath(),
		IsMainSibling:  rom.IsMainSibling,
		SiblingCount:   rom.SiblingCount,
		CreatedAt:      formatTime(rom.CreatedAt),
		UpdatedAt:      formatTime(rom.UpdatedAt),
	}
}

// FromRoms converts a slice of ROMs. The result is never nil.
func FromRoms(roms []*catalog.Rom) []Rom {
	out := make([]Rom, 0, len(roms))
	for _, rom := range roms {
		out = append(out, FromRom(rom))
	}
	return out
}

// FromProps converts user props; nil stays nil.
func FromProps(props *catalog.UserRomProps) *UserProps {
	if props == nil {
		return nil
	}
	return &UserProps{
		ID:              props.ID,
		RomID:           props.RomID,
		UserID:          props.UserID,
		NoteRawMarkdown: props.NoteRawMarkdown,
		NoteIsPublic:    props.NoteIsPublic,
		IsMainSibling:   props.IsMainSibling,
		UpdatedAt:       formatTime(props.UpdatedAt),
	}
}

func fromAssets(assets []*catalog.Asset) []Asset {
	out := make([]Asset, 0, len(assets))
	for _, a := range assets {
		out = append(out, Asset{
			ID:            a.ID,
			Kind:          string(a.Kind),
			FileName:      a.FileName,
			FilePath:      a.FilePath,
			FileSizeBytes: a.FileSizeBytes,
			CreatedAt:     formatTime(a.CreatedAt),
		})
	}
	return out
}

// FromDetailedRom converts the detailed view of a ROM.
func FromDetailedRom(d *catalog.DetailedRom) DetailedRom {
	if d == nil {
		return DetailedRom{}
	}
	return DetailedRom{
		Rom:         FromRom(d.Rom),
		Props:       FromProps(d.Props),
		Siblings:    FromRoms(d.Siblings),
		Saves:       fromAssets(d.Saves),
		States:      fromAssets(d.States),
		Screenshots: fromAssets(d.Screenshots),
	}
}

// FromDeleteReport converts per-id delete outcomes.
func FromDeleteReport(report mutation.DeleteReport) DeleteResponse {
	out := DeleteResponse{Deleted: report.Deleted, Results: make([]DeleteResult, 0, len(report.Results))}
	for _, r := range report.Results {
		result := DeleteResult{ID: r.ID, Deleted: r.Deleted}
		if r.Err != nil {
			result.Error = r.Err.Error()
			result.Code = services.Code(r.Err)
		}
		out.Results = append(out.Results, result)
	}
	return out
}
