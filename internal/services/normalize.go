package services

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"f1-pass-storefront/internal/format"
	"f1-pass-storefront/internal/models"
)

var regionByCountry = map[string]string{
	"australia":            "Oceania",
	"usa":                  "Americas",
	"united states":        "Americas",
	"mexico":               "Americas",
	"brazil":               "Americas",
	"canada":               "Americas",
	"monaco":               "Europe",
	"italy":                "Europe",
	"spain":                "Europe",
	"france":               "Europe",
	"united kingdom":       "Europe",
	"netherlands":          "Europe",
	"belgium":              "Europe",
	"hungary":              "Europe",
	"austria":              "Europe",
	"azerbaijan":           "Europe",
	"singapore":            "Asia",
	"japan":                "Asia",
	"china":                "Asia",
	"qatar":                "Middle East",
	"bahrain":              "Middle East",
	"saudi arabia":         "Middle East",
	"uae":                  "Middle East",
	"united arab emirates": "Middle East",
}

// Checked in order; the first keyword found in the title wins.
var countryKeywords = []struct {
	keywords []string
	country  string
}{
	{[]string{"australian"}, "Australia"},
	{[]string{"monaco"}, "Monaco"},
	{[]string{"singapore"}, "Singapore"},
	{[]string{"qatar"}, "Qatar"},
	{[]string{"miami", "las vegas", "united states"}, "USA"},
}

const (
	previewLimit        = 200
	previewMinParagraph = 35
	defaultVenue        = "Circuit TBA"
	defaultCity         = "TBA"
	defaultRegion       = "Global"
)

var (
	htmlTagPattern    = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	codeFencePattern  = regexp.MustCompile("```[\\s\\S]*?```")
	inlineCodePattern = regexp.MustCompile("`[^`]*`")
	imagePattern      = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	linkPattern       = regexp.MustCompile(`\[[^\]]+\]\([^)]+\)`)
	markdownPunct     = regexp.MustCompile(`[#>*_~|-]`)
	lineBreakPattern  = regexp.MustCompile(`\r?\n`)

	// Lines that never start a readable preview paragraph.
	previewSkipPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^#{1,6}\s`),
		regexp.MustCompile(`^(-|\*|\+)\s`),
		regexp.MustCompile(`^\d+\.\s`),
		regexp.MustCompile(`^>\s?`),
		regexp.MustCompile(`^---+$`),
		regexp.MustCompile("^```"),
		regexp.MustCompile(`^\*.+\*$`),
	}
)

// NormalizeFeed converts a decoded feed into events sorted by start date.
func NormalizeFeed(feed eventFeed) []*models.Event {
	var events []*models.Event

	switch {
	case feed.Organiser != nil:
		organiser := &feed.Organiser.Data.apiOrganiser
		for i := range feed.Organiser.Data.Events {
			events = append(events, normalizeEvent(&feed.Organiser.Data.Events[i], organiser))
		}
	case feed.Legacy != nil:
		for i := range feed.Legacy.Data {
			events = append(events, normalizeEvent(&feed.Legacy.Data[i], nil))
		}
	}

	if events == nil {
		events = []*models.Event{}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartTime().Before(events[j].StartTime())
	})
	return events
}

func normalizeEvent(event *apiEvent, organiserFallback *apiOrganiser) *models.Event {
	country := inferCountry(event)

	tickets := make([]models.TicketPackage, 0, len(event.Tickets))
	for i := range event.Tickets {
		tickets = append(tickets, normalizeTicket(&event.Tickets[i]))
	}
	sort.SliceStable(tickets, func(i, j int) bool {
		return tickets[i].Price < tickets[j].Price
	})

	var currency *models.Currency
	if event.Currency != nil {
		currency = &models.Currency{Code: str(event.Currency.Code), Symbol: str(event.Currency.Symbol)}
	}

	description := str(event.Description)
	if description == "" {
		description = str(event.DescriptionHTML)
	}

	organiser := event.Organiser
	if organiser == nil {
		organiser = organiserFallback
	}

	startDate, endDate := str(event.StartDate), str(event.EndDate)

	return &models.Event{
		ID:            strconv.FormatInt(*event.ID, 10),
		Name:          str(event.Title),
		Venue:         firstNonEmpty(trimmed(event.VenueName), trimmed(event.VenueNameFull), defaultVenue),
		City:          firstNonEmpty(trimmed(event.LocationState), trimmed(event.LocationAddressLine2), trimmed(event.LocationAddressLine1), defaultCity),
		Country:       country,
		Zone:          inferZone(country),
		StartDate:     startDate,
		EndDate:       endDate,
		DateLabel:     format.DateRange(startDate, endDate),
		MonthLabel:    format.MonthLabel(startDate),
		Description:   StripHTML(description),
		ImageURL:      str(event.ImageURL),
		VenueImageURL: str(event.VenueImageURL),
		EventURL:      str(event.EventURL),
		Organiser:     normalizeOrganiser(organiser),
		Tickets:       tickets,
		TicketCount:   len(tickets),
		FromPrice:     fromPrice(tickets),
		Currency:      currency,
	}
}

func normalizeTicket(ticket *apiTicket) models.TicketPackage {
	isUnlimited := !ticket.QuantityAvailable.Valid && !ticket.QuantityRemaining.Valid

	var remaining *int
	if !isUnlimited {
		n := 0
		if ticket.QuantityRemaining.Valid {
			n = int(ticket.QuantityRemaining.Value)
		} else if ticket.QuantityAvailable.Valid {
			n = int(ticket.QuantityAvailable.Value)
		}
		if n < 0 {
			n = 0
		}
		remaining = &n
	}

	markdown := trimmed(ticket.Description)
	plain := StripMarkdown(markdown)
	preview := MarkdownPreview(markdown)
	if preview == "" {
		preview = TruncateText(plain, previewLimit)
	}

	var addOns []models.TicketAddOn
	for _, a := range ticket.AddOns {
		addOn := models.TicketAddOn{
			ID:          formatID(a.ID.Float()),
			Title:       str(a.Title),
			Description: str(a.Description),
			Price:       a.Price.Float(),
			Options:     []models.TicketAddOnOption{},
		}
		for _, o := range a.Options {
			addOn.Options = append(addOn.Options, models.TicketAddOnOption{
				ID:            formatID(o.ID.Float()),
				Title:         str(o.Title),
				PriceModifier: o.PriceModifier.Float(),
			})
		}
		addOns = append(addOns, addOn)
	}

	title := str(ticket.Title)
	return models.TicketPackage{
		ID:                  formatID(ticket.ID.Float()),
		Title:               title,
		DescriptionMarkdown: markdown,
		DescriptionPlain:    plain,
		DescriptionPreview:  preview,
		Price:               ticket.Price.Float(),
		IsSoldOut:           *ticket.IsSoldOut,
		IsUnlimited:         isUnlimited,
		QuantityRemaining:   remaining,
		StartSaleDate:       ticket.StartSaleDate,
		EndSaleDate:         ticket.EndSaleDate,
		Category:            DetectCategory(title),
		AddOns:              addOns,
	}
}

func normalizeOrganiser(organiser *apiOrganiser) models.Organiser {
	if organiser == nil {
		return models.Organiser{Name: models.DefaultOrganiserName}
	}
	return models.Organiser{
		ID:           strconv.FormatInt(*organiser.ID, 10),
		Name:         firstNonEmpty(str(organiser.Name), models.DefaultOrganiserName),
		Email:        organiser.Email,
		LogoURL:      str(organiser.LogoURL),
		OrganiserURL: str(organiser.OrganiserURL),
	}
}

// fromPrice expects tickets sorted by price.
func fromPrice(tickets []models.TicketPackage) float64 {
	for i := range tickets {
		if tickets[i].IsPurchasable() {
			return tickets[i].Price
		}
	}
	if len(tickets) > 0 {
		return tickets[0].Price
	}
	return 0
}

func inferCountry(event *apiEvent) string {
	if explicit := trimmed(event.LocationCountry); explicit != "" {
		return explicit
	}

	title := strings.ToLower(str(event.Title))
	for _, rule := range countryKeywords {
		for _, keyword := range rule.keywords {
			if strings.Contains(title, keyword) {
				return rule.country
			}
		}
	}
	return defaultRegion
}

func inferZone(country string) string {
	if zone, ok := regionByCountry[strings.ToLower(country)]; ok {
		return zone
	}
	return defaultRegion
}

// DetectCategory infers the seating class from a ticket title.
func DetectCategory(title string) models.TicketCategory {
	value := strings.ToLower(title)
	switch {
	case strings.Contains(value, "paddock"):
		return models.CategoryPaddock
	case strings.Contains(value, "grandstand"), strings.Contains(value, "general admission"):
		return models.CategoryGrandstand
	default:
		return models.CategoryVIP
	}
}

// StripHTML removes tags and collapses whitespace.
func StripHTML(value string) string {
	if value == "" {
		return ""
	}
	value = htmlTagPattern.ReplaceAllString(value, " ")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(value, " "))
}

// StripMarkdown reduces markdown to plain text.
func StripMarkdown(value string) string {
	if value == "" {
		return ""
	}
	value = codeFencePattern.ReplaceAllString(value, " ")
	value = inlineCodePattern.ReplaceAllString(value, " ")
	value = imagePattern.ReplaceAllString(value, " ")
	value = linkPattern.ReplaceAllString(value, " ")
	value = markdownPunct.ReplaceAllString(value, " ")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(value, " "))
}

// TruncateText shortens value to limit characters including a trailing "...".
func TruncateText(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return strings.TrimRight(string(runes[:limit-1]), " \t\r\n") + "..."
}

// MarkdownPreview returns the first readable paragraph of a markdown text.
func MarkdownPreview(markdown string) string {
	if markdown == "" {
		return ""
	}

	var paragraphs []string
	var current []string

	flush := func() {
		if len(current) == 0 {
			return
		}
		if text := StripMarkdown(strings.TrimSpace(strings.Join(current, " "))); text != "" {
			paragraphs = append(paragraphs, text)
		}
		current = nil
	}

	for _, raw := range lineBreakPattern.Split(markdown, -1) {
		line := strings.TrimSpace(raw)
		if line == "" || isPreviewSkipLine(line) {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()

	if len(paragraphs) == 0 {
		return ""
	}

	readable := paragraphs[0]
	for _, p := range paragraphs {
		if len([]rune(p)) > previewMinParagraph {
			readable = p
			break
		}
	}
	return TruncateText(readable, previewLimit)
}

func isPreviewSkipLine(line string) bool {
	for _, pattern := range previewSkipPatterns {
		if pattern.MatchString(line) {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// formatID renders backend numeric ids the way they appear in URLs.
func formatID(id float64) string {
	return strconv.FormatFloat(id, 'f', -1, 64)
}
