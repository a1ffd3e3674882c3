package domain

// Domain is a custom hostname that partitions short code uniqueness
type Domain struct {
	ID        int64  `json:"id" yaml:"id"`
	Authority string `json:"authority" yaml:"authority"`
}

// Tag is a label attached to links, unique by name
type Tag struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}
