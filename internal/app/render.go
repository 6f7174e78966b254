package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Datajang/narajangteo-mcp-server/internal/listing"
	"github.com/Datajang/narajangteo-mcp-server/internal/rank"
)

// The tool responses are consumed by an LLM agent, so the wording below is
// part of the contract: headings carry fixed markers the agent is prompted
// to echo, and failure texts keep a usable manual link.

const msgMissingKey = "❌ Error: NARA_API_KEY is not configured. Please check your .env file."

const truncationNotice = "\n\n... [Text truncated due to length]"

var (
	sectionRule = strings.Repeat("=", 80)
	itemRule    = strings.Repeat("-", 80)
)

func renderSearch(keyword string, windowDays int, now time.Time, bids []listing.CanonicalListing, bidTotal int, specs []listing.CanonicalListing, specTotal int) string {
	if len(bids) == 0 && len(specs) == 0 {
		return fmt.Sprintf("📭 No bid notices or preliminary specifications found for keyword: '%s' in the last %d days.", keyword, windowDays)
	}
	start := now.AddDate(0, 0, -windowDays).Format("20060102")
	end := now.Format("20060102")

	var b strings.Builder
	b.WriteString("🔍 **일반 입찰 공고 (Regular Bids)**\n")
	fmt.Fprintf(&b, "Found %d bid notice(s) total, %d still open\n", bidTotal, len(bids))
	fmt.Fprintf(&b, "📅 Search period: %s ~ %s\n", start, end)
	b.WriteString(sectionRule + "\n")
	if len(bids) > 0 {
		for i, l := range bids {
			fmt.Fprintf(&b, "\n## %d. %s\n", i+1, orNA(l.Title))
			fmt.Fprintf(&b, "   📌 공고번호: %s\n", orNA(l.ID))
			fmt.Fprintf(&b, "   🏢 수요기관: %s\n", orNA(l.Organization))
			fmt.Fprintf(&b, "   💰 예산: %s\n", formatWon(l.Budget))
			fmt.Fprintf(&b, "   ⏰ 마감일시: %s\n", orNA(l.ClosingRaw))
			fmt.Fprintf(&b, "   📎 제안요청서: %s\n", orNone(firstAttachmentURL(l)))
			b.WriteString("\n" + itemRule + "\n")
		}
	} else {
		b.WriteString("No open bid notices found.\n\n")
	}
	b.WriteString("\n" + sectionRule + "\n")
	b.WriteString("📋 **사전규격 공고 (Preliminary Specifications)**\n")
	fmt.Fprintf(&b, "Found %d pre-spec(s) total, %d still open\n", specTotal, len(specs))
	b.WriteString(sectionRule + "\n")
	if len(specs) > 0 {
		for i, l := range specs {
			fmt.Fprintf(&b, "\n## %d. %s\n", i+1, orNA(l.Title))
			fmt.Fprintf(&b, "   📌 사전규격번호: %s\n", orNA(l.ID))
			fmt.Fprintf(&b, "   🏢 발주기관: %s\n", orNA(l.Organization))
			fmt.Fprintf(&b, "   💰 배정예산: %s\n", formatWon(l.Budget))
			fmt.Fprintf(&b, "   ⏰ 의견마감일시: %s\n", orNA(l.ClosingRaw))
			b.WriteString("\n" + itemRule + "\n")
		}
	} else {
		b.WriteString("No open preliminary specifications found.\n")
	}
	return b.String()
}

func renderRecommend(keyword, profile string, cands []rank.Candidate, openBidCount, bidTotal, openSpecCount, specTotal int) string {
	if len(cands) == 0 {
		return fmt.Sprintf("📭 No bid notices or preliminary specifications found for keyword: '%s'", keyword)
	}
	parts := []string{
		"🎯 Department-Filtered Integrated Search Results",
		"",
		fmt.Sprintf("📋 **Department Profile:** %s", profile),
		fmt.Sprintf("🔍 **Keyword:** %s", keyword),
		"📊 **Results:**",
		fmt.Sprintf("  - Regular Bids: %d open (out of %d total)", openBidCount, bidTotal),
		fmt.Sprintf("  - Pre-Specs: %d open (out of %d total)", openSpecCount, specTotal),
		"",
		sectionRule,
		"",
		"**Instructions for LLM:**",
		"Analyze BOTH regular bids AND preliminary specifications below for relevance to the department profile.",
		"**Prioritize items with non-zero budget values.**",
		"",
		"Based on the user's request:",
		"  - If they ask for Top 5 or specific number: Select and present the most relevant items",
		"  - If they ask for all relevant items: Present all items sorted by relevance",
		"",
		"For each item you present, include:",
		"  1. Type (Regular Bid or Pre-Spec) - Use the [BID-N] or [PRESPEC-N] prefix from the data",
		"  2. Relevance reason (why it fits the department)",
		"  3. Budget amount",
		"  4. URL (공고 URL or 제안요청서 URL)",
		"",
		sectionRule,
		"",
		fmt.Sprintf("## Ranked Results (%d items)", len(cands)),
	}
	for i, c := range cands {
		l := c.Listing
		parts = append(parts,
			"",
			fmt.Sprintf("### %d. %s %s", i+1, rankLabel(c.Index, openBidCount), orNA(l.Title)),
			fmt.Sprintf("- Score: %d/100", c.Score),
			fmt.Sprintf("- Relevance: %s", strings.Join(c.Rationale, "; ")),
		)
		if l.Kind == listing.KindOpenBid {
			parts = append(parts,
				fmt.Sprintf("- 공고번호: %s", orNA(l.ID)),
				fmt.Sprintf("- 수요기관: %s", orNA(l.Organization)),
				fmt.Sprintf("- 예산: %s", formatWon(l.Budget)),
				fmt.Sprintf("- 마감일시: %s", orNA(l.ClosingRaw)),
			)
			if l.DetailURL != "" {
				parts = append(parts, fmt.Sprintf("- 공고 URL: %s", l.DetailURL))
			}
		} else {
			parts = append(parts,
				fmt.Sprintf("- 사전규격번호: %s", orNA(l.ID)),
				fmt.Sprintf("- 발주기관: %s", orNA(l.Organization)),
				fmt.Sprintf("- 배정예산: %s", formatWon(l.Budget)),
				fmt.Sprintf("- 의견마감일시: %s", orNA(l.ClosingRaw)),
			)
		}
		if u := firstAttachmentURL(l); u != "" {
			parts = append(parts, fmt.Sprintf("- 제안요청서 URL: %s", u))
		}
	}
	return strings.Join(parts, "\n")
}

// rankLabel keeps the prefix an item had in the upstream section so the
// agent can cite it even after ranking reorders everything.
func rankLabel(index, bidCount int) string {
	if index < bidCount {
		return fmt.Sprintf("[BID-%d]", index+1)
	}
	return fmt.Sprintf("[PRESPEC-%d]", index-bidCount+1)
}

func renderAnalysis(filename, fileURL, profile, text string) string {
	parts := []string{
		"# 📄 Bid Document Analysis",
		"",
		fmt.Sprintf("**File:** %s", filename),
		fmt.Sprintf("**Source:** %s", fileURL),
		"",
	}
	if profile != "" {
		parts = append(parts,
			fmt.Sprintf("📋 **Department Profile:** %s", profile),
			"",
			sectionRule,
			"",
			"**Instructions for Strategic Analysis:**",
			fmt.Sprintf("Based on the extracted text below, analyze this project from the perspective of '%s':", profile),
			"1. **Fit Score (0-100):** How well does this project match the team's skills?",
			"2. **Core Tasks:** List only tasks that this team would perform",
			"3. **Winning Strategy:** Suggest 3 specific approaches to appeal to the client",
			"4. **Risk Factors:** Identify risky clauses (tech stack, timeline, penalties)",
			"",
			sectionRule,
		)
	}
	parts = append(parts,
		"",
		"## Extracted Document Content:",
		"",
		text,
	)
	return strings.Join(parts, "\n")
}

func renderAnalysisFailure(reason, fileURL string) string {
	return fmt.Sprintf("❌ Failed to analyze bid document: %s\n\nManual link: %s", reason, fileURL)
}

// truncateText cuts s after maxRunes runes and appends the truncation
// notice. Counting runes, not bytes, keeps Hangul intact at the cut.
func truncateText(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	seen := 0
	for i := range s {
		if seen == maxRunes {
			return s[:i] + truncationNotice
		}
		seen++
	}
	return s
}

func formatWon(amount *int64) string {
	if amount == nil || *amount <= 0 {
		return "미공개"
	}
	return groupDigits(*amount) + "원"
}

func groupDigits(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// firstAttachmentURL returns the listing's leading attachment link, or ""
// when the listing carries none.
func firstAttachmentURL(l listing.CanonicalListing) string {
	if len(l.Attachments) > 0 {
		return l.Attachments[0].URL
	}
	return ""
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func orNone(s string) string {
	if s == "" {
		return "없음"
	}
	return s
}
