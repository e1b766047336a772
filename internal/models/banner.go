package models

// Link points at one configured site and carries the override parameter so
// that following it pins the visitor's country choice.
type Link struct {
	SiteName   string `json:"site_name"`
	SiteHandle string `json:"site_handle"`
	URL        string `json:"url"`
}

// Banner offers a manual switch to the site the visitor would have been
// redirected to.
type Banner struct {
	Text        string `json:"text"`
	URL         string `json:"url"`
	CountryName string `json:"country_name,omitempty"`
	SiteHandle  string `json:"site_handle"`
	SiteName    string `json:"site_name,omitempty"`
}
