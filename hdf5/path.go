package hdf5

import (
	"fmt"
	"strings"
)

// ParseAttrPath splits an attribute path of the form
// "/group/object@name" into the object path and the attribute name.
// The object part is normalized to absolute form; "/@name" addresses
// an attribute on the root group.
func ParseAttrPath(p string) (objectPath, attrName string, err error) {
	if p == "" {
		return "", "", fmt.Errorf("%w: empty attribute path", ErrInvalidPath)
	}
	i := strings.LastIndexByte(p, '@')
	if i < 0 {
		return "", "", fmt.Errorf("%w: %q has no attribute separator", ErrInvalidPath, p)
	}
	if attrName = p[i+1:]; attrName == "" {
		return "", "", fmt.Errorf("%w: %q names no attribute", ErrInvalidPath, p)
	}
	return CleanPath(p[:i]), attrName, nil
}

// JoinAttrPath is the inverse of ParseAttrPath.
func JoinAttrPath(objectPath, attrName string) string {
	if objectPath == "/" {
		return "/@" + attrName
	}
	return objectPath + "@" + attrName
}

// SplitPath breaks a slash-separated path into its components,
// dropping empty segments. The root path yields none.
func SplitPath(p string) []string {
	var parts []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

// CleanPath normalizes a path to absolute form without a trailing
// slash.
func CleanPath(p string) string {
	return "/" + strings.Trim(p, "/")
}
