package extraction

import "strings"

// QualityGate checks that an extractor's markdown output contains both
// mandatory headings. The remaining RequiredHeadings may legitimately be
// empty sections for a short session, so only the mandatory subset gates
// persistence.
func QualityGate(output string) error {
	upper := strings.ToUpper(output)
	for _, heading := range mandatoryHeadings {
		if !strings.Contains(upper, heading) {
			return ErrQualityGateFailed
		}
	}
	return nil
}

// Section extracts the body text under a named heading, up to the next
// heading line of any level (a line starting with "#" or one that contains
// another entry in RequiredHeadings), or end of text.
func Section(output, heading string) string {
	lines := strings.Split(output, "\n")
	upperHeading := strings.ToUpper(heading)

	start := -1
	for i, line := range lines {
		if strings.Contains(strings.ToUpper(line), upperHeading) {
			start = i + 1
			break
		}
	}
	if start == -1 {
		return ""
	}

	var body []string
	for i := start; i < len(lines); i++ {
		upperLine := strings.ToUpper(lines[i])
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "#") {
			break
		}
		isNextHeading := false
		for _, h := range RequiredHeadings {
			if h != heading && strings.Contains(upperLine, h) {
				isNextHeading = true
				break
			}
		}
		if isNextHeading {
			break
		}
		body = append(body, lines[i])
	}
	return strings.TrimSpace(strings.Join(body, "\n"))
}
