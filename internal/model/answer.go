package model

// CachedAnswer carries enough metadata to reconstruct the FAQ-tier response
// shape on a cache hit.
type CachedAnswer struct {
	Answer   string `json:"answer"`
	Source   string `json:"source"`
	FAQID    string `json:"faq_id"`
	Category string `json:"category"`
}
