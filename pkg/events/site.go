// Copyright 2024-2026 Aiku AI

package events

// Website hook kinds, taken from the last URL path segment.
const (
	SiteDjango        = "django"
	SiteForum         = "forum"
	SiteNewSchool     = "new-school"
	SiteImpersonation = "impersonation"
)

// ParseSite decodes a website hook body. kind is the URL path segment.
func ParseSite(kind string, body []byte) (Event, error) {
	switch kind {
	case SiteDjango:
		return parse[SiteErrorEvent](SourceSite, kind, body)
	case SiteForum:
		return parse[ForumPostEvent](SourceSite, kind, body)
	case SiteNewSchool:
		return parse[NewSchoolEvent](SourceSite, kind, body)
	case SiteImpersonation:
		return parse[ImpersonationEvent](SourceSite, kind, body)
	default:
		return nil, ErrUnknownType
	}
}

type siteEvent struct{}

func (siteEvent) Source() Source { return SourceSite }
func (siteEvent) isEvent()       {}

// SiteErrorEvent is a Django crash report.
type SiteErrorEvent struct {
	siteEvent
	Request struct {
		User   string `json:"user"`
		Method string `json:"method" validate:"required"`
		Path   string `json:"path" validate:"required"`
	} `json:"request"`
	Exception struct {
		Value string `json:"value" validate:"required"`
		Trace string `json:"trace"`
	} `json:"exception"`
}

// ForumPostEvent announces a new forum thread or reply.
type ForumPostEvent struct {
	siteEvent
	Username string `json:"username" validate:"required"`
	Forum    string `json:"forum"`
	Title    string `json:"title" validate:"required"`
	URL      string `json:"url" validate:"required,url"`
}

// NewSchoolEvent announces a school registration waiting for review.
type NewSchoolEvent struct {
	siteEvent
	Name string `json:"name" validate:"required"`
	City string `json:"city"`
	URL  string `json:"url" validate:"required,url"`
}

// ImpersonationEvent reports a staff member impersonating a user.
type ImpersonationEvent struct {
	siteEvent
	Hijacker string `json:"hijacker" validate:"required"`
	Hijacked string `json:"hijacked" validate:"required"`
	Action   string `json:"action" validate:"required,oneof=start end"`
}
