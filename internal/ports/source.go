package ports

// DocumentSource supplies the documents to rank.
// List must return identifiers in a stable order: ranking inserts documents
// in that order, so ties keep it. Read returns the full text of one document;
// an error means the document is skipped, never scored.
type DocumentSource interface {
	List() ([]string, error)
	Read(id string) (string, error)
}
