package classify

// Category is a file-type grouping used to organize discovered links
// and filter which files get downloaded.
type Category string

// Built-in categories. CategoryCustom is reserved for user-supplied
// extension mappings that name no built-in category.
const (
	CategoryDocuments   Category = "documents"
	CategoryImages      Category = "images"
	CategoryVideos      Category = "videos"
	CategoryAudio       Category = "audio"
	CategoryArchives    Category = "archives"
	CategoryData        Category = "data"
	CategoryExecutables Category = "executables"
	CategoryDownloads   Category = "downloads"
	CategoryOthers      Category = "others"
	CategoryCustom      Category = "custom"
)

// Categories lists all built-in categories in a stable order.
func Categories() []Category {
	return []Category{
		CategoryDocuments,
		CategoryImages,
		CategoryVideos,
		CategoryAudio,
		CategoryArchives,
		CategoryData,
		CategoryExecutables,
		CategoryDownloads,
		CategoryOthers,
	}
}

// IsKnownCategory reports whether name is a built-in category or "custom".
func IsKnownCategory(name string) bool {
	for _, c := range Categories() {
		if string(c) == name {
			return true
		}
	}
	return name == string(CategoryCustom)
}

// defaultExtensions maps each built-in category to the path extensions
// that identify it. Extensions are lowercase and include the dot.
var defaultExtensions = map[Category][]string{
	CategoryDocuments:   {".pdf", ".doc", ".docx", ".txt", ".rtf", ".odt"},
	CategoryImages:      {".jpg", ".jpeg", ".png", ".gif", ".bmp", ".svg", ".webp"},
	CategoryVideos:      {".mp4", ".avi", ".mov", ".wmv", ".flv", ".webm", ".mkv"},
	CategoryAudio:       {".mp3", ".wav", ".flac", ".aac", ".ogg", ".wma"},
	CategoryArchives:    {".zip", ".rar", ".tar", ".gz", ".7z", ".bz2"},
	CategoryData:        {".json", ".xml", ".csv", ".xls", ".xlsx"},
	CategoryExecutables: {".exe", ".msi", ".dmg", ".deb", ".rpm"},
	CategoryOthers:      {".iso", ".torrent", ".apk"},
}

// endpointPatterns are path substrings that mark a URL as a download
// endpoint even when it carries no file extension. The classification
// is tentative until response headers confirm it.
var endpointPatterns = []string{
	"/download/",
	"/downloads/",
	"/file/",
	"/files/",
	"/attachment/",
	"/attachments/",
	"/dl/",
}

// mimeFamilies maps Content-Type prefixes to categories, checked in
// order. Prefix matching handles parameterized types ("image/png;
// charset=...") and family wildcards ("video/").
var mimeFamilies = []struct {
	prefix   string
	category Category
}{
	{"application/pdf", CategoryDocuments},
	{"application/msword", CategoryDocuments},
	{"application/vnd.openxmlformats-officedocument.wordprocessingml", CategoryDocuments},
	{"application/vnd.oasis.opendocument.text", CategoryDocuments},
	{"text/plain", CategoryDocuments},
	{"image/", CategoryImages},
	{"video/", CategoryVideos},
	{"audio/", CategoryAudio},
	{"application/zip", CategoryArchives},
	{"application/x-tar", CategoryArchives},
	{"application/gzip", CategoryArchives},
	{"application/x-7z-compressed", CategoryArchives},
	{"application/x-rar-compressed", CategoryArchives},
	{"application/json", CategoryData},
	{"application/xml", CategoryData},
	{"text/csv", CategoryData},
	{"application/vnd.ms-excel", CategoryData},
	{"application/vnd.openxmlformats-officedocument.spreadsheetml", CategoryData},
	{"application/x-msdownload", CategoryExecutables},
	{"application/x-executable", CategoryExecutables},
	{"application/octet-stream", CategoryDownloads},
}
