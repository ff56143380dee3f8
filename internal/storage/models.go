package storage

import "time"

// DocumentRecord represents an indexed corpus document in the database.
type DocumentRecord struct {
	ID        string // UUID, stable across re-indexing of the same path
	Path      string // Relative path from the corpus root, unique
	Hash      string // SHA256 hex string of the raw file content
	Public    bool   // Whether the document is marked exposable (publicDirs membership)
	UpdatedAt time.Time
}

// ChunkRecord represents a chunk of a document, indexed for vector search.
type ChunkRecord struct {
	ID         string // UUID (same as the vector store point ID)
	DocumentID string // Foreign key to documents.id
	ChunkIndex int    // Position within the document, starts at 0
	Section    string // Heading path the chunk belongs to (e.g. "# Intro > ## Basics")
	Text       string // Chunk text content
	TokenCount int    // Estimated token count of Text
}
