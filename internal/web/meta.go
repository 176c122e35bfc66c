package web

import "strings"

const (
	SiteName       = "Cleaning Professionals Melbourne"
	DefaultSiteURL = "https://www.cleaningprofessionals.com.au"
)

// Organization is the schema.org block published on the feedback page.
type Organization struct {
	Context         string          `json:"@context"`
	Type            string          `json:"@type"`
	Name            string          `json:"name"`
	URL             string          `json:"url"`
	Logo            string          `json:"logo"`
	SameAs          []string        `json:"sameAs"`
	Address         PostalAddress   `json:"address"`
	AggregateRating AggregateRating `json:"aggregateRating"`
}

type PostalAddress struct {
	Type            string `json:"@type"`
	AddressLocality string `json:"addressLocality"`
	AddressRegion   string `json:"addressRegion"`
	AddressCountry  string `json:"addressCountry"`
}

type AggregateRating struct {
	Type        string `json:"@type"`
	RatingValue string `json:"ratingValue"`
	ReviewCount string `json:"reviewCount"`
}

// NewOrganization describes the business rooted at siteURL.
func NewOrganization(siteURL string) *Organization {
	base := siteBase(siteURL)
	return &Organization{
		Context: "https://schema.org",
		Type:    "Organization",
		Name:    SiteName,
		URL:     base,
		Logo:    base + "/logo.webp",
		SameAs: []string{
			"https://www.facebook.com/cleaningprofessionals",
			"https://www.instagram.com/cleaningprofessionals",
		},
		Address: PostalAddress{
			Type:            "PostalAddress",
			AddressLocality: "Melbourne",
			AddressRegion:   "VIC",
			AddressCountry:  "AU",
		},
		AggregateRating: AggregateRating{
			Type:        "AggregateRating",
			RatingValue: "4.8",
			ReviewCount: "500",
		},
	}
}

// FeedbackMeta is the head of the public feedback page.
func FeedbackMeta(siteURL string) Meta {
	base := siteBase(siteURL)
	return Meta{
		Title:        "Cleaning Professionals Melbourne - Customer Feedback",
		Description:  "Share your experience with Melbourne's leading cleaning service. Your feedback helps us maintain our high standards of professional cleaning services across Melbourne, including end of lease, commercial, and residential cleaning.",
		Keywords:     "cleaning feedback, Melbourne cleaners, cleaning service review, end of lease cleaning feedback, commercial cleaning review",
		Canonical:    base + "/feedback",
		SiteName:     SiteName,
		SiteURL:      base,
		Organization: NewOrganization(base),
	}
}

// ReviewMeta is the head of the review funnel page.
func ReviewMeta(siteURL string) Meta {
	base := siteBase(siteURL)
	return Meta{
		Title:       "Cleaning Professionals Melbourne - Share Your Experience",
		Description: "Help us grow by sharing your experience on Google.",
		SiteName:    SiteName,
		SiteURL:     base,
	}
}

// AdminMeta is the head of the internal dashboard. It is never indexed.
func AdminMeta() Meta {
	return Meta{
		Title:    "Google Review Dashboard",
		SiteName: SiteName,
		NoIndex:  true,
	}
}

func siteBase(siteURL string) string {
	base := strings.TrimRight(strings.TrimSpace(siteURL), "/")
	if base == "" {
		return DefaultSiteURL
	}
	return base
}
