package definition

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// MaxFileSize bounds definition files.
const MaxFileSize = 1 << 20

// Load reads and parses the definition file at path.
func Load(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		message := "failed to access file"
		switch {
		case os.IsNotExist(err):
			message = "file not found"
		case os.IsPermission(err):
			message = "permission denied"
		}
		return nil, &LoadError{FilePath: path, Message: message, Cause: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &LoadError{FilePath: path, Message: "not a regular file"}
	}
	if info.Size() > MaxFileSize {
		return nil, &LoadError{
			FilePath: path,
			Message:  fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", info.Size(), MaxFileSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{FilePath: path, Message: "failed to read file", Cause: err}
	}

	doc, err := Parse(data)
	if err != nil {
		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			parseErr.FilePath = path
		}
		return nil, err
	}
	return doc, nil
}

// Parse decodes a definition document. Unknown fields are rejected.
func Parse(data []byte) (*Document, error) {
	if !utf8.Valid(data) {
		return nil, &ParseError{Message: "document contains invalid UTF-8 encoding"}
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var doc Document
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &doc, nil
		}
		return nil, &ParseError{Message: err.Error(), Cause: err}
	}
	return &doc, nil
}
