// Package uuid generates and validates the string identifiers used as
// primary keys across the entity store.
package uuid

import (
	"sort"
	"strings"

	googleuuid "github.com/google/uuid"
)

// New returns a UUIDv7 string. Version 7 ids are ordered by creation time,
// which keeps primary key indexes append-mostly and lets "creation order" be
// recovered from the id alone.
func New() string {
	id, err := googleuuid.NewV7()
	if err != nil {
		// Only fails when the random source is broken.
		return googleuuid.New().String()
	}
	return id.String()
}

// Parse validates s and returns its canonical lower-case form.
func Parse(s string) (string, error) {
	parsed, err := googleuuid.Parse(s)
	if err != nil {
		return "", err
	}
	return parsed.String(), nil
}

// IsValid checks if a string is a valid UUID
func IsValid(s string) bool {
	_, err := googleuuid.Parse(s)
	return err == nil
}

// ParseList splits a comma separated list of UUIDs, skipping blanks and
// dropping duplicates. The result is sorted.
func ParseList(raw string) ([]string, error) {
	seen := make(map[string]struct{})
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := Parse(part)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
