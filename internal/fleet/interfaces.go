package fleet

// Parser is the interface for fleet definition loading.
type Parser interface {
	ParseFile(path string) (*Definition, error)
}
