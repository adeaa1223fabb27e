package suggest

import (
	"strings"
)

const (
	metroPrefix = "Metro 2 Violation:"
	fcraPrefix  = "FCRA Violation:"
	fcraSuffix  = "under FCRA § 623"
	bullet      = "• "

	// DeletionRequest closes every synthesized reason
	DeletionRequest = "These reporting errors make the account inaccurate and unverifiable. I request that it be deleted from my credit file."

	// ComplianceInstruction is the instruction paired with synthesized reasons
	ComplianceInstruction = "Please investigate these violations under the Fair Credit Reporting Act, correct or delete the inaccurate information, and send me written confirmation of the results."
)

// Synthesize turns an ordered list of violation tags into a reason and an
// instruction. Tags mentioning FCRA become FCRA lines, everything else becomes
// a Metro 2 line. No tags yields two empty strings. The output depends only on
// the tags and their order.
func Synthesize(tags []string) (reason, instruction string) {
	lines := make([]string, 0, len(tags))
	for _, tag := range tags {
		if line := Line(tag); line != "" {
			lines = append(lines, bullet+line)
		}
	}
	if len(lines) == 0 {
		return "", ""
	}
	return strings.Join(lines, "\n") + "\n\n" + DeletionRequest, ComplianceInstruction
}

// Line renders one tag with its violation prefix, or "" for a blank tag
func Line(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}
	if strings.Contains(strings.ToLower(tag), "fcra") {
		body := stripPrefix(tag, fcraPrefix)
		if body == "" {
			return ""
		}
		if !strings.Contains(body, "§ 623") {
			body += " " + fcraSuffix
		}
		return fcraPrefix + " " + body
	}
	body := stripPrefix(tag, metroPrefix)
	if body == "" {
		return ""
	}
	return metroPrefix + " " + body
}

func stripPrefix(tag, prefix string) string {
	if len(tag) >= len(prefix) && strings.EqualFold(tag[:len(prefix)], prefix) {
		return strings.TrimSpace(tag[len(prefix):])
	}
	return tag
}
