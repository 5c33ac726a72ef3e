package domain

import (
	"fmt"
	"strings"
)

// NumberDigits is the length of a canonical phone number.
const NumberDigits = 10

// Recipient is one entry of the active recipient list or of a saved group.
type Recipient struct {
	Name   string `json:"name"`
	Number string `json:"number"`
}

// Contact is a raw entry returned by a contact source, before normalization.
type Contact struct {
	Name      string `json:"name"`
	RawNumber string `json:"number"`
}

// ImportResult describes the outcome of merging picked contacts into a list.
type ImportResult struct {
	Added   []Recipient
	Skipped int
	Warning string
}

const (
	importNothingAddedWarning = "Selected contacts were already in the list or had no valid numbers."
	importPartialWarning      = "Added %d contacts; %d were already in the list or had no valid numbers."
)

// NormalizeNumber strips every non-digit and keeps the trailing NumberDigits
// digits. Longer inputs lose their leading digits (country or trunk
// prefixes); this is a heuristic, not E.164 parsing.
func NormalizeNumber(raw string) (string, error) {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	digits := b.String()
	if len(digits) < NumberDigits {
		return "", ErrTooShort
	}
	return digits[len(digits)-NumberDigits:], nil
}

// AddRecipient validates a manual entry against the existing list. The list
// itself is never modified.
func AddRecipient(name, rawNumber string, existing []Recipient) (Recipient, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return Recipient{}, ErrEmptyName
	}

	number, err := NormalizeNumber(rawNumber)
	if err != nil {
		return Recipient{}, err
	}

	if containsNumber(existing, number) {
		return Recipient{}, ErrDuplicate
	}

	return Recipient{Name: trimmed, Number: number}, nil
}

// RemoveRecipient returns a copy of list without the element at index.
func RemoveRecipient(list []Recipient, index int) ([]Recipient, error) {
	if index < 0 || index >= len(list) {
		return nil, fmt.Errorf("%w: recipient index %d", ErrNotFound, index)
	}

	out := make([]Recipient, 0, len(list)-1)
	out = append(out, list[:index]...)
	out = append(out, list[index+1:]...)
	return out, nil
}

// MergeContacts normalizes picked contacts and returns the ones that can be
// appended to existing. Invalid and duplicate numbers are skipped and reported
// in Warning; a contact without a name is labelled with its number.
func MergeContacts(existing []Recipient, contacts []Contact) (ImportResult, error) {
	if len(contacts) == 0 {
		return ImportResult{}, ErrNoneSelected
	}

	seen := make(map[string]struct{}, len(existing)+len(contacts))
	for _, r := range existing {
		seen[r.Number] = struct{}{}
	}

	result := ImportResult{Added: make([]Recipient, 0, len(contacts))}
	for _, c := range contacts {
		number, err := NormalizeNumber(c.RawNumber)
		if err != nil {
			result.Skipped++
			continue
		}
		if _, dup := seen[number]; dup {
			result.Skipped++
			continue
		}

		name := strings.TrimSpace(c.Name)
		if name == "" {
			name = "+" + number
		}
		result.Added = append(result.Added, Recipient{Name: name, Number: number})
		seen[number] = struct{}{}
	}

	switch {
	case len(result.Added) == 0:
		result.Warning = importNothingAddedWarning
	case result.Skipped > 0:
		result.Warning = fmt.Sprintf(importPartialWarning, len(result.Added), result.Skipped)
	}

	return result, nil
}

// CloneRecipients returns an independent copy of list. A nil list stays nil.
func CloneRecipients(list []Recipient) []Recipient {
	if list == nil {
		return nil
	}
	out := make([]Recipient, len(list))
	copy(out, list)
	return out
}

func containsNumber(list []Recipient, number string) bool {
	for _, r := range list {
		if r.Number == number {
			return true
		}
	}
	return false
}
