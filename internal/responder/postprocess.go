package responder

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/redbot/internal/domain"
	"github.com/Rrens/redbot/internal/llm"
)

var refusalVariants = []string{
	llm.RefusalSentence,
	"I don't have specific information about that",
	"Sorry, I don't have relevant information for that.",
}

var contactKeywords = []string{"contact", "phone", "email", "address", "reach", "call", "location"}

var (
	phoneRe        = regexp.MustCompile(`\+?\d[\d\-\s\(\)]{6,}\d`)
	emailRe        = regexp.MustCompile(`[\w.\-]+@[\w.\-]+\.\w+`)
	addressRe      = regexp.MustCompile(`(?i)Address[:\-]?\s*(.+)`)
	servicePageRe  = regexp.MustCompile(`(?i)Service Page:\s*(https?://\S+)`)
	contactPageRe  = regexp.MustCompile(`(?i)Contact Page:\s*(https?://\S+)`)
	linkRe         = regexp.MustCompile(`https?://[\w\-./?&=%#]+`)
	plainURLRe     = regexp.MustCompile(`https?://[^\s<>"']+`)
	anchorRe       = regexp.MustCompile(`(?is)<a\b[^>]*>.*?</a>`)
	splitPathRe    = regexp.MustCompile(`(https?://[^\s<>"']+)[ \t]*\r?\n[ \t]*(/[^\s<>"']*)`)
	splitSlashRe   = regexp.MustCompile(`(https?://[^\s<>"']+/)[ \t]*\r?\n[ \t]*([a-z0-9][^\s<>"']*)`)
	yourCompanyRe  = regexp.MustCompile(`\b[Yy]our company\b`)
	thisCompanyRe  = regexp.MustCompile(`(?i)\bthis company\b`)
	trailingPuncRe = regexp.MustCompile(`[.,;:!?]+$`)
)

const moreDetails = "For more details:"

// IsRefusal reports whether a model answer is a no-information refusal
func IsRefusal(answer string) bool {
	for _, v := range refusalVariants {
		if strings.Contains(answer, v) {
			return true
		}
	}
	return false
}

// IsContactQuery reports whether a question asks for contact details
func IsContactQuery(question string) bool {
	q := strings.ToLower(question)
	for _, k := range contactKeywords {
		if strings.Contains(q, k) {
			return true
		}
	}
	return false
}

// ContactDetails are the contact facts found in retrieved context
type ContactDetails struct {
	Phones  []string
	Emails  []string
	Address string
	Links   []LabeledLink
}

// LabeledLink is a URL with the label it was published under
type LabeledLink struct {
	Label string
	URL   string
}

// Empty reports whether nothing was found
func (c ContactDetails) Empty() bool {
	return len(c.Phones) == 0 && len(c.Emails) == 0 && c.Address == "" && len(c.Links) == 0
}

// ExtractContacts scans context text for phone numbers, emails, an
// address line and web links. Labeled service and contact pages come
// before other links.
func ExtractContacts(context string) ContactDetails {
	var c ContactDetails
	c.Phones = distinct(trimAll(phoneRe.FindAllString(context, -1)))
	c.Emails = distinct(emailRe.FindAllString(context, -1))
	if m := addressRe.FindStringSubmatch(context); m != nil {
		c.Address = strings.TrimSpace(m[1])
	}

	seen := make(map[string]bool)
	add := func(label, raw string) {
		u := trailingPuncRe.ReplaceAllString(raw, "")
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		c.Links = append(c.Links, LabeledLink{Label: label, URL: u})
	}
	for _, m := range servicePageRe.FindAllStringSubmatch(context, -1) {
		add("Service Page", m[1])
	}
	for _, m := range contactPageRe.FindAllStringSubmatch(context, -1) {
		add("Contact Page", m[1])
	}
	for _, u := range linkRe.FindAllString(context, -1) {
		add("Link", u)
	}
	return c
}

// Render formats the details as the contact answer
func (c ContactDetails) Render(workspaceName string) string {
	var b strings.Builder
	if workspaceName != "" {
		fmt.Fprintf(&b, "Here are the contact details I found for %s:\n", workspaceName)
	} else {
		b.WriteString("Here are the contact details I found:\n")
	}

	var parts []string
	if len(c.Phones) > 0 {
		parts = append(parts, "Phones: "+strings.Join(c.Phones, ", "))
	}
	if len(c.Emails) > 0 {
		parts = append(parts, "Emails: "+strings.Join(c.Emails, ", "))
	}
	if c.Address != "" {
		parts = append(parts, "Address: "+c.Address)
	}
	if len(c.Links) > 0 {
		links := make([]string, 0, len(c.Links))
		for _, l := range c.Links {
			links = append(links, fmt.Sprintf(`%s: <a href="%s" %s>Check this link</a>`, l.Label, l.URL, linkStyle))
		}
		parts = append(parts, moreDetails+" "+strings.Join(links, " | "))
	}
	b.WriteString(strings.Join(parts, "\n"))
	return b.String()
}

// postInput carries what post-processing needs to shape a raw answer
type postInput struct {
	Question  string
	Raw       string
	Context   string
	Workspace *domain.Workspace
	Bundle    domain.Bundle
}

// postProcess shapes a raw answer for display. It never fails: a panic
// while formatting returns the raw answer unchanged.
func postProcess(in postInput) (out string, outcome string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("answer post-processing failed")
			out, outcome = in.Raw, outcomeGenerated
		}
	}()

	wsName := ""
	if in.Workspace != nil {
		wsName = strings.TrimSpace(in.Workspace.Name)
	}
	full := in.Bundle == domain.BundleFull

	if IsRefusal(in.Raw) {
		if IsContactQuery(in.Question) {
			if c := ExtractContacts(in.Context); !c.Empty() {
				return finishLinks(c.Render(wsName)), outcomeContact
			}
			if full {
				return noContactFull + whatsAppSuffix(in.Workspace), outcomeRefusal
			}
			return llm.RefusalSentence + whatsAppSuffix(in.Workspace), outcomeRefusal
		}
		msg := llm.RefusalSentence
		if full {
			msg += switchSuggestion + switcherTrigger
		}
		return msg + whatsAppSuffix(in.Workspace), outcomeRefusal
	}

	answer := in.Raw
	if wsName != "" {
		answer = yourCompanyRe.ReplaceAllString(answer, "Our company")
		answer = thisCompanyRe.ReplaceAllString(answer, "our company")
	}
	return finishLinks(answer), outcomeGenerated
}

// finishLinks repairs URLs broken across lines, turns bare URLs into
// anchors and keeps a single "For more details:" section.
func finishLinks(s string) string {
	s = splitPathRe.ReplaceAllString(s, "$1$2")
	s = splitSlashRe.ReplaceAllString(s, "$1$2")
	s = linkify(s)
	return dedupeMoreDetails(s)
}

// linkify wraps bare URLs outside existing anchors
func linkify(s string) string {
	var b strings.Builder
	last := 0
	for _, loc := range anchorRe.FindAllStringIndex(s, -1) {
		b.WriteString(linkifyPlain(s[last:loc[0]]))
		b.WriteString(s[loc[0]:loc[1]])
		last = loc[1]
	}
	b.WriteString(linkifyPlain(s[last:]))
	return b.String()
}

func linkifyPlain(s string) string {
	return plainURLRe.ReplaceAllStringFunc(s, func(raw string) string {
		u := trailingPuncRe.ReplaceAllString(raw, "")
		tail := raw[len(u):]
		if u == "" {
			return raw
		}
		return fmt.Sprintf(`<a href="%s" %s>%s</a>%s`, u, linkStyle, u, tail)
	})
}

func dedupeMoreDetails(s string) string {
	first := strings.Index(s, moreDetails)
	if first < 0 {
		return s
	}
	rest := s[first+len(moreDetails):]
	if second := strings.Index(rest, moreDetails); second >= 0 {
		return strings.TrimRight(s[:first+len(moreDetails)+second], " \n")
	}
	return s
}

func trimAll(in []string) []string {
	for i := range in {
		in[i] = strings.TrimSpace(in[i])
	}
	return in
}

func distinct(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
