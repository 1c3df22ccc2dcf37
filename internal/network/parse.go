package network

import (
	"regexp"
	"strings"

	"github.com/ybbu/NexJen-Bio/internal/normalize"
)

var (
	collaboratorSplitRe = regexp.MustCompile(`[,;|]`)
	officialSplitRe     = regexp.MustCompile(`[,;]`)
)

// Official is one parsed study official.
type Official struct {
	Name        string `json:"name"`
	Role        string `json:"role"`
	Affiliation string `json:"affiliation"`
}

// ParseCollaborators splits a raw collaborators field, normalizes each
// token, and de-duplicates within the trial. Order follows first
// appearance.
func ParseCollaborators(n *normalize.Normalizer, raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	for _, token := range collaboratorSplitRe.Split(raw, -1) {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		name := n.Normalize(token)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// ParseOfficials splits a raw officials field into investigators. An
// entry has up to three pipe-separated parts: name|role|affiliation;
// with two parts the role is empty, with one only the name is set.
func ParseOfficials(n *normalize.Normalizer, raw string) []Official {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var out []Official
	for _, entry := range officialSplitRe.Split(raw, -1) {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, "|")
		var name, role, affiliation string
		switch {
		case len(parts) >= 3:
			name = strings.TrimSpace(parts[0])
			role = strings.TrimSpace(parts[1])
			affiliation = strings.TrimSpace(parts[2])
		case len(parts) == 2:
			name = strings.TrimSpace(parts[0])
			affiliation = strings.TrimSpace(parts[1])
		default:
			name = entry
		}

		if name == "" {
			continue
		}
		if affiliation != "" {
			affiliation = n.Normalize(affiliation)
		}
		out = append(out, Official{
			Name:        normalize.TitleCase(name),
			Role:        role,
			Affiliation: affiliation,
		})
	}
	return out
}
