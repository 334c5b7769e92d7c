package textsource

import (
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// doiLeadPages is how many pages to scan for a DOI; publishers put it on
// the first page, occasionally the second.
const doiLeadPages = 3

var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// ExtractDOI scans the leading pages of a PDF for a DOI. A PDF without a
// DOI returns ("", nil); only unreadable files are errors.
func ExtractDOI(filePath string) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	pages := doiLeadPages
	if n := r.NumPage(); n < pages {
		pages = n
	}

	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if doi := findDOI(text); doi != "" {
			return doi, nil
		}
	}
	return "", nil
}

// findDOI returns the first plausible DOI in text, with trailing
// punctuation stripped.
func findDOI(text string) string {
	for _, m := range doiPattern.FindAllString(text, -1) {
		if doi := strings.TrimRight(m, ".,;:)"); isValidDOI(doi) {
			return doi
		}
	}
	return ""
}

func isValidDOI(doi string) bool {
	if len(doi) < 10 || !strings.HasPrefix(doi, "10.") {
		return false
	}
	slash := strings.Index(doi, "/")
	return slash > 0 && slash < len(doi)-1
}
