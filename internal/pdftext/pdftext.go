package pdftext

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var nonWordRe = regexp.MustCompile(`\W+`)

// ExtractText converts a PDF to text with pdftotext, preserving layout.
// A missing PDF is not an error: the case simply has no text. The
// intermediate txt file is removed after reading.
func ExtractText(pdfPath, textDir string) (string, error) {
	if _, err := os.Stat(pdfPath); err != nil {
		return "", nil
	}
	if err := os.MkdirAll(textDir, 0o755); err != nil {
		return "", fmt.Errorf("creating text dir: %w", err)
	}
	stem := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	txtPath := filepath.Join(textDir, stem+".txt")

	cmd := exec.Command("pdftotext", "-layout", pdfPath, txtPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("pdftotext %s: %s", pdfPath, strings.TrimSpace(stderr.String()))
	}

	data, err := os.ReadFile(txtPath)
	if err != nil {
		return "", err
	}
	os.Remove(txtPath)
	return string(data), nil
}

// PageCount reads the page count with pdfinfo. Anything going wrong
// counts as zero pages; the serializer flags those cases in the
// process log.
func PageCount(pdfPath string) int {
	out, err := exec.Command("pdfinfo", pdfPath).Output()
	if err != nil {
		return 0
	}
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Pages:")))
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

// CitationFor picks the citation out of the preferred citation field.
// Appellate and bankruptcy filings cite after the last semicolon,
// district filings before the first. Other court types have no usable
// citation and header stripping is skipped for them.
func CitationFor(courtType, preferredCitation string) string {
	switch courtType {
	case "Appellate", "Bankruptcy":
		parts := strings.Split(preferredCitation, ";")
		return parts[len(parts)-1]
	case "District":
		return strings.Split(preferredCitation, ";")[0]
	}
	return ""
}

// StripHeader removes the stamped header lines citing the case on every
// page, e.g.
//
//	Case 4:17-cv-00237-RLY-DML Document 70 Filed 03/01/19 Page 1 of 12 PageID #:
//	                                       <pageID>
//
// The consumed span runs through the citation and filing date to the end
// of the line, plus the following line when it carries a page marker.
func StripHeader(text, citation string) string {
	if citation == "" {
		return text
	}
	re, err := regexp.Compile(`.*?` + regexp.QuoteMeta(citation) +
		`.*?\d{1,2}/\d{1,2}/\d{2,4}[^\n]*(?:\n[^\n]*<?[Pp]a?ge?[^\n]*)?`)
	if err != nil {
		return text
	}
	return re.ReplaceAllString(text, "")
}

// CheckOCR decides whether a PDF needs OCR. After stripping headers, a
// native rendition keeps more than 50 of its first 60 word tokens; a
// scanned one collapses to noise. Returns the stripped text (empty when
// OCR is needed), the decision and the citation used.
func CheckOCR(text, courtType, preferredCitation string) (string, bool, string) {
	citation := CitationFor(courtType, preferredCitation)
	stripped := StripHeader(text, citation)

	words := strings.Fields(nonWordRe.ReplaceAllString(stripped, " "))
	if len(words) > 60 {
		words = words[:60]
	}
	if len(words) > 50 {
		return stripped, false, citation
	}
	return "", true, citation
}
