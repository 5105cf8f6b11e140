// internal/scraper/types.go
package scraper

import (
	"fmt"
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Selectors holds every CSS selector the maps scraper relies on. The maps
// markup changes without notice, so all of them can be overridden from config.
type Selectors struct {
	SearchBox        string `yaml:"search_box" json:"search_box"`
	ResultsFeed      string `yaml:"results_feed" json:"results_feed"`
	ListingItem      string `yaml:"listing_item" json:"listing_item"`
	ListingName      string `yaml:"listing_name" json:"listing_name"`
	DetailAnchor     string `yaml:"detail_anchor" json:"detail_anchor"`
	DetailReady      string `yaml:"detail_ready" json:"detail_ready"`
	WebsiteContainer string `yaml:"website_container" json:"website_container"`
	WebsiteText      string `yaml:"website_text" json:"website_text"`
	PhoneButton      string `yaml:"phone_button" json:"phone_button"`
	PhonePattern     string `yaml:"phone_pattern" json:"phone_pattern"`
	ReviewAbout      string `yaml:"review_about" json:"review_about"`
	ReviewAboutText  string `yaml:"review_about_text" json:"review_about_text"`
}

// DefaultSelectors returns the selectors matching the current maps layout
func DefaultSelectors() Selectors {
	return Selectors{
		SearchBox:        "#searchboxinput",
		ResultsFeed:      `div[role="feed"]`,
		ListingItem:      ".Nv2PK",
		ListingName:      ".qBF1Pd",
		DetailAnchor:     "a.hfpxzc",
		DetailReady:      "h1",
		WebsiteContainer: "div.rogA2c.ITvuef",
		WebsiteText:      "div.Io6YTe.fontBodyMedium.kR99db.fdkmkc",
		PhoneButton:      `button.CsEnBe[data-tooltip="Copy phone number"]`,
		PhonePattern:     `Phone:\s*([+\d\-(). ]+)`,
		ReviewAbout:      `[aria-label="About the Business"]`,
		ReviewAboutText:  "div.y-css-9nkozu",
	}
}

// WithDefaults fills empty selectors from DefaultSelectors
func (s Selectors) WithDefaults() Selectors {
	d := DefaultSelectors()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&s.SearchBox, d.SearchBox)
	fill(&s.ResultsFeed, d.ResultsFeed)
	fill(&s.ListingItem, d.ListingItem)
	fill(&s.ListingName, d.ListingName)
	fill(&s.DetailAnchor, d.DetailAnchor)
	fill(&s.DetailReady, d.DetailReady)
	fill(&s.WebsiteContainer, d.WebsiteContainer)
	fill(&s.WebsiteText, d.WebsiteText)
	fill(&s.PhoneButton, d.PhoneButton)
	fill(&s.PhonePattern, d.PhonePattern)
	fill(&s.ReviewAbout, d.ReviewAbout)
	fill(&s.ReviewAboutText, d.ReviewAboutText)
	return s
}

// Validate compiles every selector and the phone pattern
func (s Selectors) Validate() error {
	for name, sel := range map[string]string{
		"search_box":        s.SearchBox,
		"results_feed":      s.ResultsFeed,
		"listing_item":      s.ListingItem,
		"listing_name":      s.ListingName,
		"detail_anchor":     s.DetailAnchor,
		"detail_ready":      s.DetailReady,
		"website_container": s.WebsiteContainer,
		"website_text":      s.WebsiteText,
		"phone_button":      s.PhoneButton,
		"review_about":      s.ReviewAbout,
		"review_about_text": s.ReviewAboutText,
	} {
		if sel == "" {
			return fmt.Errorf("selector %s cannot be empty", name)
		}
		if _, err := cascadia.Compile(sel); err != nil {
			return fmt.Errorf("selector %s is invalid: %w", name, err)
		}
	}
	re, err := regexp.Compile(s.PhonePattern)
	if err != nil {
		return fmt.Errorf("phone_pattern is invalid: %w", err)
	}
	if re.NumSubexp() < 1 {
		return fmt.Errorf("phone_pattern needs a capture group")
	}
	return nil
}

// Candidate is a named listing entry waiting for enrichment
type Candidate struct {
	Name  string
	Index int
	Item  *goquery.Selection
}

// Details holds what the detail page yielded
type Details struct {
	Website string `json:"website,omitempty"`
	Phone   string `json:"contact_phone,omitempty"`
}
