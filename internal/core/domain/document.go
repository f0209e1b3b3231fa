package domain

// FileType identifies the format of a source file.
type FileType string

// Supported source file formats.
const (
	FileTypePDF      FileType = "pdf"
	FileTypeMarkdown FileType = "markdown"
)

// FileTypeForExtension maps a lowercase file extension (with leading
// dot) to its file type.
func FileTypeForExtension(ext string) (FileType, bool) {
	switch ext {
	case ".pdf":
		return FileTypePDF, true
	case ".md", ".markdown":
		return FileTypeMarkdown, true
	default:
		return "", false
	}
}

// SourceFile is a file discovered in the knowledge directory.
// It is ephemeral - rediscovered by scanning on every build and
// never persisted directly.
type SourceFile struct {
	// Path is the file path relative to the working directory.
	// It is the ownership key for chunks in the graph.
	Path string

	// Name is the base filename, used for source attribution.
	Name string

	// Type is the detected file format.
	Type FileType

	// Checksum is the hex-encoded SHA-256 of the file contents.
	Checksum string
}

// Document is the extracted text of a source file.
// Produced by a loader, consumed by the chunker, then discarded.
type Document struct {
	// Source is the path of the file this document came from.
	Source string

	// Filename is the base filename for attribution.
	Filename string

	// Text is the full extracted text.
	Text string

	// Type is the source file format.
	Type FileType

	// Pages is the page count for paginated formats, zero otherwise.
	Pages int
}

// Chunk is a searchable window of document text, persisted as a
// node in the graph store. A chunk is exclusively owned by its
// Source path and is destroyed and recreated whenever that file
// is reprocessed.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// Source is the owning file path.
	Source string

	// Filename is the base filename for attribution.
	Filename string

	// Text is the chunk content.
	Text string

	// SequenceIndex orders chunks within a build batch. Indices are
	// consecutive within a source, so successor edges can always be
	// derived from (Source, SequenceIndex) alone.
	SequenceIndex int

	// Embedding is the vector representation for similarity search.
	Embedding []float32
}

// ContextHit is a single retrieval result from the vector index.
type ContextHit struct {
	// Text is the matched chunk content.
	Text string

	// Filename attributes the hit to its source file.
	Filename string

	// NextText is the text of the sequential successor chunk,
	// empty when the hit has no successor.
	NextText string

	// Score is the similarity score, higher is better.
	Score float64
}
