package services

import (
	"strings"

	"github.com/adampresley/photovault/pkg/models"
)

const placeholderFilename = "photo"

var filenameReplacer = strings.NewReplacer(
	"<", "_",
	">", "_",
	":", "_",
	"\"", "_",
	"/", "_",
	"\\", "_",
	"|", "_",
	"?", "_",
	"*", "_",
)

/*
ClassifyTier decides whether an uploaded file belongs to the light or
max tier of an album. Directory segments win over filename tokens:
uploads arrive either with an explicit light/ or max/ folder, or with
the tier flattened into the filename (e.g. "IMG_0012_light_.jpg") when
the transport strips directory structure. Both encodings resolve to
the same tier.

The returned name is the final path segment, sanitized for storage.
*/
func ClassifyTier(relativePath string) (models.Tier, string) {
	normalized := strings.ReplaceAll(relativePath, "\\", "/")
	segments := strings.Split(normalized, "/")

	cleanName := SanitizeFilename(segments[len(segments)-1])

	for _, segment := range segments {
		switch strings.ToLower(strings.TrimSpace(segment)) {
		case string(models.TierLight):
			return models.TierLight, cleanName
		case string(models.TierMax):
			return models.TierMax, cleanName
		}
	}

	if tier, found := tierFromFilename(segments[len(segments)-1]); found {
		return tier, cleanName
	}

	return models.TierUnknown, cleanName
}

/*
tierFromFilename looks for a "light" or "max" token in the filename
surrounded on both sides by one of the separators _ - . or space.
*/
func tierFromFilename(filename string) (models.Tier, bool) {
	lower := strings.ToLower(filename)

	for _, tier := range []models.Tier{models.TierLight, models.TierMax} {
		token := string(tier)
		searchFrom := 0

		for {
			index := strings.Index(lower[searchFrom:], token)

			if index < 0 {
				break
			}

			index += searchFrom

			if index > 0 && index+len(token) < len(lower) {
				before := lower[index-1]
				after := lower[index+len(token)]

				if isTierSeparator(before) && isTierSeparator(after) {
					return tier, true
				}
			}

			searchFrom = index + len(token)
		}
	}

	return models.TierUnknown, false
}

func isTierSeparator(b byte) bool {
	return b == '_' || b == '-' || b == '.' || b == ' '
}

/*
SanitizeFilename strips characters that are unsafe on common
filesystems, collapses whitespace runs, and trims the result. An
empty result falls back to a placeholder so a photo always has a
storable name.
*/
func SanitizeFilename(filename string) string {
	cleaned := filenameReplacer.Replace(filename)
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	if cleaned == "" {
		return placeholderFilename
	}

	return cleaned
}
